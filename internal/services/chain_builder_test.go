package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/relaychat/relay-backend/internal/types"
)

func chanMsg(id uuid.UUID, author uuid.UUID, channel uuid.UUID, at time.Time) *types.Message {
	return &types.Message{
		ID:        id,
		AuthorID:  author,
		ChannelID: &channel,
		CreatedAt: at,
	}
}

func convMsg(id uuid.UUID, author uuid.UUID, conversation uuid.UUID, at time.Time) *types.Message {
	return &types.Message{
		ID:             id,
		AuthorID:       author,
		ConversationID: &conversation,
		CreatedAt:      at,
	}
}

func TestWalkChain(t *testing.T) {
	author := uuid.New()
	channel := uuid.New()
	otherChannel := uuid.New()
	conversation := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gap := time.Hour

	t.Run("single message yields chain of one", func(t *testing.T) {
		target := chanMsg(uuid.New(), author, channel, base)
		chain := WalkChain([]*types.Message{target}, target, gap)
		if len(chain) != 1 || chain[0].ID != target.ID {
			t.Fatalf("expected chain [target], got %d messages", len(chain))
		}
	})

	t.Run("burst within gap is collected chronologically", func(t *testing.T) {
		m1 := chanMsg(uuid.New(), author, channel, base)
		m2 := chanMsg(uuid.New(), author, channel, base.Add(10*time.Minute))
		m3 := chanMsg(uuid.New(), author, channel, base.Add(25*time.Minute))
		// newest first, as ListRecentByAuthor returns them
		chain := WalkChain([]*types.Message{m3, m2, m1}, m3, gap)
		if len(chain) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(chain))
		}
		for i, want := range []*types.Message{m1, m2, m3} {
			if chain[i].ID != want.ID {
				t.Fatalf("position %d: wrong message, chain not chronological", i)
			}
		}
	})

	t.Run("idle gap splits the chain", func(t *testing.T) {
		old := chanMsg(uuid.New(), author, channel, base)
		m1 := chanMsg(uuid.New(), author, channel, base.Add(2*time.Hour))
		m2 := chanMsg(uuid.New(), author, channel, base.Add(2*time.Hour+5*time.Minute))
		chain := WalkChain([]*types.Message{m2, m1, old}, m2, gap)
		if len(chain) != 2 {
			t.Fatalf("expected gap to cut old message, got %d messages", len(chain))
		}
		if chain[0].ID != m1.ID || chain[1].ID != m2.ID {
			t.Fatalf("chain kept the wrong messages across the gap")
		}
	})

	t.Run("boundary gap exactly at limit is kept", func(t *testing.T) {
		m1 := chanMsg(uuid.New(), author, channel, base)
		m2 := chanMsg(uuid.New(), author, channel, base.Add(gap))
		chain := WalkChain([]*types.Message{m2, m1}, m2, gap)
		if len(chain) != 2 {
			t.Fatalf("gap equal to the limit must not split, got %d messages", len(chain))
		}
	})

	t.Run("other contexts are skipped without affecting the cutoff", func(t *testing.T) {
		m1 := chanMsg(uuid.New(), author, channel, base)
		noiseA := chanMsg(uuid.New(), author, otherChannel, base.Add(20*time.Minute))
		noiseB := convMsg(uuid.New(), author, conversation, base.Add(30*time.Minute))
		m2 := chanMsg(uuid.New(), author, channel, base.Add(40*time.Minute))
		chain := WalkChain([]*types.Message{m2, noiseB, noiseA, m1}, m2, gap)
		if len(chain) != 2 {
			t.Fatalf("expected noise filtered out, got %d messages", len(chain))
		}
		if chain[0].ID != m1.ID || chain[1].ID != m2.ID {
			t.Fatalf("cross-context messages leaked into the chain")
		}
	})

	t.Run("interleaved context does not bridge an idle gap", func(t *testing.T) {
		old := chanMsg(uuid.New(), author, channel, base)
		noise := convMsg(uuid.New(), author, conversation, base.Add(90*time.Minute))
		m1 := chanMsg(uuid.New(), author, channel, base.Add(3*time.Hour))
		chain := WalkChain([]*types.Message{m1, noise, old}, m1, gap)
		if len(chain) != 1 {
			t.Fatalf("noise in another context must not bridge the gap, got %d messages", len(chain))
		}
	})

	t.Run("target missing from recent is appended", func(t *testing.T) {
		m1 := chanMsg(uuid.New(), author, channel, base)
		target := chanMsg(uuid.New(), author, channel, base.Add(time.Minute))
		chain := WalkChain([]*types.Message{m1}, target, gap)
		if len(chain) != 2 {
			t.Fatalf("expected target appended, got %d messages", len(chain))
		}
		if chain[len(chain)-1].ID != target.ID {
			t.Fatalf("target must terminate its own chain")
		}
	})

	t.Run("missing target stays alone across an idle gap", func(t *testing.T) {
		old := chanMsg(uuid.New(), author, channel, base)
		target := chanMsg(uuid.New(), author, channel, base.Add(2*time.Hour))
		chain := WalkChain([]*types.Message{old}, target, gap)
		if len(chain) != 1 || chain[0].ID != target.ID {
			t.Fatalf("expected chain [target] past the gap, got %d messages", len(chain))
		}
	})

	t.Run("nil target yields nil", func(t *testing.T) {
		if chain := WalkChain(nil, nil, gap); chain != nil {
			t.Fatalf("expected nil chain for nil target")
		}
	})

	t.Run("empty recent still yields the target", func(t *testing.T) {
		target := chanMsg(uuid.New(), author, channel, base)
		chain := WalkChain(nil, target, gap)
		if len(chain) != 1 || chain[0].ID != target.ID {
			t.Fatalf("expected chain [target] from empty recent")
		}
	})
}
