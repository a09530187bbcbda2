package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/repos/testutil"
	"github.com/relaychat/relay-backend/internal/types"
)

func seedUser(t *testing.T, tx *gorm.DB, name string) *types.User {
	t.Helper()
	u := &types.User{DisplayName: name}
	if err := tx.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedChannel(t *testing.T, tx *gorm.DB, name string) *types.Channel {
	t.Helper()
	ch := &types.Channel{Name: name}
	if err := tx.Create(ch).Error; err != nil {
		t.Fatalf("seed channel: %v", err)
	}
	return ch
}

func seedMessage(t *testing.T, tx *gorm.DB, author *types.User, channel *types.Channel, content string, at time.Time) *types.Message {
	t.Helper()
	m := &types.Message{
		AuthorID:  author.ID,
		ChannelID: &channel.ID,
		Content:   content,
		CreatedAt: at,
	}
	if err := tx.Create(m).Error; err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return m
}

// unitVector builds a 1536-dim vector with a single 1.0 at idx.
func unitVector(idx int) pgvector.Vector {
	v := make([]float32, 1536)
	v[idx] = 1
	return pgvector.NewVector(v)
}

func TestMessageRepoListByContextOrder(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMessageRepo(db, testutil.Logger(t))

	ana := seedUser(t, tx, "Ana")
	planning := seedChannel(t, tx, "planning")
	other := seedChannel(t, tx, "random")

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	m1 := seedMessage(t, tx, ana, planning, "first", base)
	m2 := seedMessage(t, tx, ana, planning, "second", base.Add(time.Minute))
	// same created_at as m2: insertion order must break the tie
	m3 := seedMessage(t, tx, ana, planning, "third", base.Add(time.Minute))
	seedMessage(t, tx, ana, other, "noise", base.Add(2*time.Minute))

	msgs, err := repo.ListByContext(ctx, tx, types.ContextChannel, planning.ID)
	if err != nil {
		t.Fatalf("ListByContext: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []uuid.UUID{m1.ID, m2.ID, m3.ID} {
		if msgs[i].ID != want {
			t.Fatalf("position %d out of order", i)
		}
	}
	if msgs[0].Author == nil || msgs[0].Author.DisplayName != "Ana" {
		t.Fatalf("author not preloaded")
	}
}

func TestMessageRepoListRecentByAuthor(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMessageRepo(db, testutil.Logger(t))

	ana := seedUser(t, tx, "Ana")
	bo := seedUser(t, tx, "Bo")
	planning := seedChannel(t, tx, "planning")

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	seedMessage(t, tx, ana, planning, "oldest", base)
	newest := seedMessage(t, tx, ana, planning, "newest", base.Add(2*time.Minute))
	seedMessage(t, tx, bo, planning, "not ana", base.Add(3*time.Minute))

	msgs, err := repo.ListRecentByAuthor(ctx, tx, ana.ID, 10)
	if err != nil {
		t.Fatalf("ListRecentByAuthor: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected only Ana's messages, got %d", len(msgs))
	}
	if msgs[0].ID != newest.ID {
		t.Fatalf("newest message must come first")
	}

	limited, err := repo.ListRecentByAuthor(ctx, tx, ana.ID, 1)
	if err != nil {
		t.Fatalf("ListRecentByAuthor limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != newest.ID {
		t.Fatalf("limit must keep the newest message")
	}
}

func TestMessageRepoEmbeddingLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMessageRepo(db, testutil.Logger(t))

	ana := seedUser(t, tx, "Ana")
	planning := seedChannel(t, tx, "planning")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	m1 := seedMessage(t, tx, ana, planning, "first", base)
	m2 := seedMessage(t, tx, ana, planning, "second", base.Add(time.Minute))

	if err := repo.WriteEmbedded(ctx, tx, m1.ID, unitVector(0), "ctx one", "chain one"); err != nil {
		t.Fatalf("WriteEmbedded m1: %v", err)
	}

	// the chain grows: triple moves to m2, m1 is superseded
	if err := repo.WriteEmbedded(ctx, tx, m2.ID, unitVector(0), "ctx two", "chain two"); err != nil {
		t.Fatalf("WriteEmbedded m2: %v", err)
	}
	if err := repo.ClearEmbedded(ctx, tx, []uuid.UUID{m1.ID}); err != nil {
		t.Fatalf("ClearEmbedded: %v", err)
	}

	got1, err := repo.GetByID(ctx, tx, m1.ID)
	if err != nil {
		t.Fatalf("GetByID m1: %v", err)
	}
	if got1.Embedding != nil || got1.Context != nil || got1.FormattedChain != nil {
		t.Fatalf("superseded message must hold a null triple")
	}

	got2, err := repo.GetByID(ctx, tx, m2.ID)
	if err != nil {
		t.Fatalf("GetByID m2: %v", err)
	}
	if got2.Embedding == nil || got2.Context == nil || got2.FormattedChain == nil {
		t.Fatalf("terminal message must hold the full triple")
	}
	if *got2.Context != "ctx two" || *got2.FormattedChain != "chain two" {
		t.Fatalf("triple content mismatch: %q / %q", *got2.Context, *got2.FormattedChain)
	}

	// clearing already-null rows stays a no-op
	if err := repo.ClearEmbedded(ctx, tx, []uuid.UUID{m1.ID}); err != nil {
		t.Fatalf("repeat ClearEmbedded: %v", err)
	}
	if err := repo.ClearEmbedded(ctx, tx, nil); err != nil {
		t.Fatalf("empty ClearEmbedded: %v", err)
	}
}

func TestMessageRepoMatchByEmbedding(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMessageRepo(db, testutil.Logger(t))

	ana := seedUser(t, tx, "Ana")
	planning := seedChannel(t, tx, "planning")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	hit := seedMessage(t, tx, ana, planning, "rollout plan", base)
	miss := seedMessage(t, tx, ana, planning, "lunch orders", base.Add(time.Minute))
	seedMessage(t, tx, ana, planning, "never embedded", base.Add(2*time.Minute))

	if err := repo.WriteEmbedded(ctx, tx, hit.ID, unitVector(0), "", "chain"); err != nil {
		t.Fatalf("WriteEmbedded hit: %v", err)
	}
	if err := repo.WriteEmbedded(ctx, tx, miss.ID, unitVector(1), "", "chain"); err != nil {
		t.Fatalf("WriteEmbedded miss: %v", err)
	}

	matches, err := repo.MatchByEmbedding(ctx, tx, unitVector(0), 0.3, 8)
	if err != nil {
		t.Fatalf("MatchByEmbedding: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one match above threshold, got %d", len(matches))
	}
	if matches[0].MessageID != hit.ID {
		t.Fatalf("wrong message matched")
	}
	if matches[0].Similarity < 0.99 {
		t.Fatalf("identical vectors should score ~1, got %v", matches[0].Similarity)
	}
	if matches[0].FormattedChain == nil || *matches[0].FormattedChain != "chain" {
		t.Fatalf("formatted chain must ride along with the match")
	}
}
