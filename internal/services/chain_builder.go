package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/repos"
	"github.com/relaychat/relay-backend/internal/types"
	"github.com/relaychat/relay-backend/internal/utils"
)

// ChainBuilderService groups temporally-adjacent messages from one author in
// one channel/conversation into the chain ending at the triggering message.
type ChainBuilderService interface {
	// Build returns the chain in chronological order. A message with no
	// qualifying neighbor yields a chain of length 1. Returns nil when the
	// triggering message no longer exists.
	Build(ctx context.Context, msg *types.Message) ([]*types.Message, error)
}

type chainBuilderService struct {
	db       *gorm.DB
	log      *logger.Logger
	messages repos.MessageRepo

	idleGap     time.Duration
	recentLimit int
}

func NewChainBuilderService(db *gorm.DB, baseLog *logger.Logger, messageRepo repos.MessageRepo) ChainBuilderService {
	log := baseLog.With("service", "ChainBuilderService")
	return &chainBuilderService{
		db:          db,
		log:         log,
		messages:    messageRepo,
		idleGap:     utils.GetEnvAsDuration("CHAIN_IDLE_GAP", time.Hour, log),
		recentLimit: utils.GetEnvAsInt("CHAIN_RECENT_LIMIT", 100, log),
	}
}

func (s *chainBuilderService) Build(ctx context.Context, msg *types.Message) ([]*types.Message, error) {
	if msg == nil {
		return nil, nil
	}
	recent, err := s.messages.ListRecentByAuthor(ctx, nil, msg.AuthorID, s.recentLimit)
	if err != nil {
		return nil, err
	}
	chain := WalkChain(recent, msg, s.idleGap)
	s.log.Debug("Chain built",
		"author_id", msg.AuthorID,
		"message_id", msg.ID,
		"chain_len", len(chain),
	)
	return chain, nil
}

// WalkChain walks recent messages (newest first, any context) and collects
// the contiguous same-context run whose consecutive gaps stay within idleGap.
// The cutoff starts unbounded and then follows the previously accepted
// message's timestamp, so the walk stops at the first violating gap.
// Messages from other contexts are ignored without affecting the cutoff.
// The result is chronological (oldest first) and always contains target.
func WalkChain(recent []*types.Message, target *types.Message, idleGap time.Duration) []*types.Message {
	if target == nil {
		return nil
	}

	var chain []*types.Message
	seenTarget := false
	var cutoff *time.Time

	for _, m := range recent {
		if !m.SameContext(target) {
			continue
		}
		if cutoff != nil && cutoff.Sub(m.CreatedAt) > idleGap {
			break
		}
		chain = append(chain, m)
		ts := m.CreatedAt
		cutoff = &ts
		if m.ID == target.ID {
			seenTarget = true
		}
	}

	// Reverse to chronological order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	// A freshly inserted message can race the fetch; make sure the trigger
	// terminates its own chain. It only joins the accumulated run when the
	// gap to the run's newest member stays within idleGap.
	if !seenTarget {
		if n := len(chain); n > 0 && target.CreatedAt.Sub(chain[n-1].CreatedAt) > idleGap {
			chain = nil
		}
		chain = append(chain, target)
	}
	return chain
}
