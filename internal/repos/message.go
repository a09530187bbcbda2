package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, msgs []*types.Message) ([]*types.Message, error)
	// GetByID returns nil, nil when the message does not exist (deleted
	// before a deferred chain run fired).
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Message, error)
	// ListByContext returns every message of a channel or conversation in
	// chronological order with author and attachments joined.
	ListByContext(ctx context.Context, tx *gorm.DB, kind types.ContextKind, contextID uuid.UUID) ([]*types.Message, error)
	// ListRecentByAuthor returns the author's most recent messages across all
	// contexts, newest first, attachments joined. Ties on created_at keep
	// insertion order via seq.
	ListRecentByAuthor(ctx context.Context, tx *gorm.DB, authorID uuid.UUID, limit int) ([]*types.Message, error)
	// WriteEmbedded sets the embedding/context/formatted_chain triple on one
	// message. The three fields are written together or not at all.
	WriteEmbedded(ctx context.Context, tx *gorm.DB, id uuid.UUID, embedding pgvector.Vector, contextText string, formattedChain string) error
	// ClearEmbedded nulls the triple on the given messages. Clearing already
	// null fields is a no-op.
	ClearEmbedded(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	// MatchByEmbedding is the similarity RPC: cosine ranking above threshold,
	// capped at limit, ordered by the database.
	MatchByEmbedding(ctx context.Context, tx *gorm.DB, query pgvector.Vector, threshold float64, limit int) ([]*types.MessageMatch, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(ctx context.Context, tx *gorm.DB, msgs []*types.Message) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(msgs) == 0 {
		return []*types.Message{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var msg types.Message
	err := transaction.WithContext(ctx).
		Preload("Author").
		Preload("Attachments").
		Where("id = ?", id).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) ListByContext(ctx context.Context, tx *gorm.DB, kind types.ContextKind, contextID uuid.UUID) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Message
	if contextID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Preload("Author").
		Preload("Attachments").
		Order("created_at ASC, seq ASC")
	switch kind {
	case types.ContextConversation:
		q = q.Where("conversation_id = ?", contextID)
	default:
		q = q.Where("channel_id = ?", contextID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) ListRecentByAuthor(ctx context.Context, tx *gorm.DB, authorID uuid.UUID, limit int) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Message
	if authorID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	if err := transaction.WithContext(ctx).
		Preload("Attachments").
		Where("author_id = ?", authorID).
		Order("created_at DESC, seq DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) WriteEmbedded(ctx context.Context, tx *gorm.DB, id uuid.UUID, embedding pgvector.Vector, contextText string, formattedChain string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	var ctxPtr *string
	if contextText != "" {
		ctxPtr = &contextText
	}
	return transaction.WithContext(ctx).
		Model(&types.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":       embedding,
			"context":         ctxPtr,
			"formatted_chain": formattedChain,
			"updated_at":      time.Now(),
		}).Error
}

func (r *messageRepo) ClearEmbedded(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Message{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"embedding":       nil,
			"context":         nil,
			"formatted_chain": nil,
			"updated_at":      time.Now(),
		}).Error
}

func (r *messageRepo) MatchByEmbedding(ctx context.Context, tx *gorm.DB, query pgvector.Vector, threshold float64, limit int) ([]*types.MessageMatch, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var out []*types.MessageMatch
	err := transaction.WithContext(ctx).Raw(`
		SELECT
			id AS message_id,
			author_id,
			channel_id,
			conversation_id,
			content,
			1 - (embedding <=> ?) AS similarity,
			formatted_chain
		FROM "message"
		WHERE embedding IS NOT NULL
		  AND deleted_at IS NULL
		  AND 1 - (embedding <=> ?) > ?
		ORDER BY embedding <=> ?
		LIMIT ?
	`, query, query, threshold, query, limit).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
