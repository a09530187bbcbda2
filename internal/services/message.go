package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/repos"
	"github.com/relaychat/relay-backend/internal/types"
)

// CreateMessageInput is the write-path request for a new message.
type CreateMessageInput struct {
	AuthorID       uuid.UUID
	ChannelID      *uuid.UUID
	ConversationID *uuid.UUID
	ParentID       *uuid.UUID
	Content        string
	Attachments    []CreateAttachmentInput
}

type CreateAttachmentInput struct {
	FileName   string
	MimeType   string
	StorageKey string
	SizeBytes  int64
}

// MessageService owns the message write path: persist the message and its
// attachments, emit the created event and schedule the debounced chain job.
type MessageService interface {
	Create(ctx context.Context, input CreateMessageInput) (*types.Message, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Message, error)
	ListByContext(ctx context.Context, kind types.ContextKind, contextID uuid.UUID) ([]*types.Message, error)
}

type messageService struct {
	db          *gorm.DB
	log         *logger.Logger
	messages    repos.MessageRepo
	attachments repos.AttachmentRepo
	jobs        JobService
	bus         EventBus
}

func NewMessageService(
	db *gorm.DB,
	baseLog *logger.Logger,
	messageRepo repos.MessageRepo,
	attachmentRepo repos.AttachmentRepo,
	jobService JobService,
	bus EventBus,
) MessageService {
	return &messageService{
		db:          db,
		log:         baseLog.With("service", "MessageService"),
		messages:    messageRepo,
		attachments: attachmentRepo,
		jobs:        jobService,
		bus:         bus,
	}
}

func (s *messageService) Create(ctx context.Context, input CreateMessageInput) (*types.Message, error) {
	if input.AuthorID == uuid.Nil {
		return nil, fmt.Errorf("author id required")
	}
	if (input.ChannelID == nil) == (input.ConversationID == nil) {
		return nil, fmt.Errorf("exactly one of channel id or conversation id required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" && len(input.Attachments) == 0 {
		return nil, fmt.Errorf("message needs content or attachments")
	}

	msg := &types.Message{
		AuthorID:       input.AuthorID,
		ChannelID:      input.ChannelID,
		ConversationID: input.ConversationID,
		ParentID:       input.ParentID,
		Content:        content,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.messages.Create(ctx, tx, []*types.Message{msg})
		if err != nil {
			return err
		}
		msg = created[0]

		if len(input.Attachments) > 0 {
			atts := make([]*types.Attachment, 0, len(input.Attachments))
			for _, a := range input.Attachments {
				atts = append(atts, &types.Attachment{
					MessageID:    msg.ID,
					FileName:     a.FileName,
					MimeType:     a.MimeType,
					MimeCategory: types.CategorizeMime(a.MimeType),
					StorageKey:   a.StorageKey,
					SizeBytes:    a.SizeBytes,
				})
			}
			created, err := s.attachments.Create(ctx, tx, atts)
			if err != nil {
				return err
			}
			msg.Attachments = created
		}

		_, err = s.jobs.EnqueueChainProcess(ctx, tx, msg.AuthorID, string(msg.ContextKind()), msg.ContextID(), msg.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Message created",
		"message_id", msg.ID,
		"author_id", msg.AuthorID,
		"kind", string(msg.ContextKind()),
		"attachments", len(msg.Attachments))

	PublishEvent(ctx, s.bus, s.log, Event{
		Type:      EventMessageCreated,
		MessageID: msg.ID,
		ContextID: msg.ContextID(),
		Kind:      string(msg.ContextKind()),
	})

	return msg, nil
}

func (s *messageService) GetByID(ctx context.Context, id uuid.UUID) (*types.Message, error) {
	return s.messages.GetByID(ctx, nil, id)
}

func (s *messageService) ListByContext(ctx context.Context, kind types.ContextKind, contextID uuid.UUID) ([]*types.Message, error) {
	return s.messages.ListByContext(ctx, nil, kind, contextID)
}
