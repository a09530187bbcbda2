package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/types"
)

type AttachmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, atts []*types.Attachment) ([]*types.Attachment, error)
	GetByMessageIDs(ctx context.Context, tx *gorm.DB, messageIDs []uuid.UUID) ([]*types.Attachment, error)
	// UpdateDescription persists describer output: raw caption/description plus
	// the pre-built display wrapper.
	UpdateDescription(ctx context.Context, tx *gorm.DB, id uuid.UUID, caption string, description string, formattedDescription string) error
}

type attachmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttachmentRepo(db *gorm.DB, baseLog *logger.Logger) AttachmentRepo {
	return &attachmentRepo{db: db, log: baseLog.With("repo", "AttachmentRepo")}
}

func (r *attachmentRepo) Create(ctx context.Context, tx *gorm.DB, atts []*types.Attachment) ([]*types.Attachment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(atts) == 0 {
		return []*types.Attachment{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&atts).Error; err != nil {
		return nil, err
	}
	return atts, nil
}

func (r *attachmentRepo) GetByMessageIDs(ctx context.Context, tx *gorm.DB, messageIDs []uuid.UUID) ([]*types.Attachment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Attachment
	if len(messageIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attachmentRepo) UpdateDescription(ctx context.Context, tx *gorm.DB, id uuid.UUID, caption string, description string, formattedDescription string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if caption != "" {
		updates["caption"] = caption
	}
	if description != "" {
		updates["description"] = description
	}
	if formattedDescription != "" {
		updates["formatted_description"] = formattedDescription
	}
	return transaction.WithContext(ctx).
		Model(&types.Attachment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
