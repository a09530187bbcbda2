package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/repos"
	"github.com/relaychat/relay-backend/internal/types"
)

// EmbeddingWriterService owns the embedding/context/formatted_chain triple on
// message rows. It is the only component that writes or clears those fields.
//
// Per message the fields move unset -> embedded -> superseded: the newest
// member of a chain gets the triple, and every earlier member that held one
// is cleared in the same transaction. No partial writes: if the embed call or
// the write fails, prior state is left untouched, so a still-active chain
// never loses its last embedded representative.
type EmbeddingWriterService interface {
	Commit(ctx context.Context, chain []*types.Message, contextText string, chainBody string) error
}

type embeddingWriterService struct {
	db       *gorm.DB
	log      *logger.Logger
	messages repos.MessageRepo
	openai   OpenAIClient
}

func NewEmbeddingWriterService(db *gorm.DB, baseLog *logger.Logger, messageRepo repos.MessageRepo, openai OpenAIClient) EmbeddingWriterService {
	return &embeddingWriterService{
		db:       db,
		log:      baseLog.With("service", "EmbeddingWriterService"),
		messages: messageRepo,
		openai:   openai,
	}
}

func (s *embeddingWriterService) Commit(ctx context.Context, chain []*types.Message, contextText string, chainBody string) error {
	if len(chain) == 0 {
		return nil
	}
	combined := CombinedEmbeddingText(contextText, chainBody)
	if strings.TrimSpace(combined) == "" {
		s.log.Debug("Empty combined text, skipping embedding")
		return nil
	}

	vectors, err := s.openai.Embed(ctx, []string{combined}, EmbedModeDocument)
	if err != nil {
		return fmt.Errorf("embed chain: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	vec := pgvector.NewVector(vectors[0])

	terminal := chain[len(chain)-1]
	superseded := make([]uuid.UUID, 0, len(chain)-1)
	for _, m := range chain[:len(chain)-1] {
		superseded = append(superseded, m.ID)
	}

	// Write the terminal triple first, then clear the absorbed members; one
	// transaction keeps the single-embedding invariant visible at commit.
	// Clearing already-null rows is a no-op, so retries are safe.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.messages.WriteEmbedded(ctx, tx, terminal.ID, vec, contextText, chainBody); err != nil {
			return fmt.Errorf("write embedding: %w", err)
		}
		if err := s.messages.ClearEmbedded(ctx, tx, superseded); err != nil {
			return fmt.Errorf("clear superseded embeddings: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Chain embedded",
		"message_id", terminal.ID,
		"chain_len", len(chain),
		"superseded", len(superseded),
		"has_context", contextText != "",
	)
	return nil
}
