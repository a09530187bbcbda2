package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/repos"
	"github.com/relaychat/relay-backend/internal/types"
)

// HistoryFormatterService renders the full ordered history of a channel or
// conversation into one plain-text transcript for the context synthesizer.
type HistoryFormatterService interface {
	// Transcript returns "" when the context has no messages; callers treat
	// that as "no context available", not an error.
	Transcript(ctx context.Context, kind types.ContextKind, contextID uuid.UUID) (string, error)
}

type historyFormatterService struct {
	db       *gorm.DB
	log      *logger.Logger
	messages repos.MessageRepo
}

func NewHistoryFormatterService(db *gorm.DB, baseLog *logger.Logger, messageRepo repos.MessageRepo) HistoryFormatterService {
	return &historyFormatterService{
		db:       db,
		log:      baseLog.With("service", "HistoryFormatterService"),
		messages: messageRepo,
	}
}

func (s *historyFormatterService) Transcript(ctx context.Context, kind types.ContextKind, contextID uuid.UUID) (string, error) {
	msgs, err := s.messages.ListByContext(ctx, nil, kind, contextID)
	if err != nil {
		return "", err
	}
	return FormatTranscript(msgs), nil
}

// FormatTranscript renders messages (assumed chronological) grouped by
// calendar date: a "Date:" header whenever the date changes, one line per
// message, then one line per described attachment.
func FormatTranscript(msgs []*types.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	lastDate := ""
	for _, msg := range msgs {
		date := msg.CreatedAt.Format(transcriptDateFormat)
		if date != lastDate {
			if lastDate != "" {
				b.WriteString("\n")
			}
			b.WriteString("Date: ")
			b.WriteString(date)
			b.WriteString("\n")
			lastDate = date
		}
		b.WriteString(messageLine(msg.Author.SenderName(), msg.CreatedAt, msg.Content))
		b.WriteString("\n")
		for _, att := range msg.Attachments {
			if line, ok := attachmentLine(att); ok {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
