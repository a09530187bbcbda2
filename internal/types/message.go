package types

import (
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// ContextKind distinguishes the two places a message can live.
type ContextKind string

const (
	ContextChannel      ContextKind = "channel"
	ContextConversation ContextKind = "conversation"
)

// Message is a single chat message. Exactly one of ChannelID/ConversationID is
// set. Embedding, Context and FormattedChain are owned by the embedding
// writer: the terminal message of a chain holds all three, every earlier
// member of that chain holds null.
type Message struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Seq            int64         `gorm:"column:seq;autoIncrement;uniqueIndex" json:"seq"`
	AuthorID       uuid.UUID     `gorm:"type:uuid;column:author_id;not null;index" json:"author_id"`
	Author         *User         `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
	ChannelID      *uuid.UUID    `gorm:"type:uuid;column:channel_id;index;check:chk_message_context,(channel_id IS NULL) <> (conversation_id IS NULL)" json:"channel_id,omitempty"`
	Channel        *Channel      `gorm:"foreignKey:ChannelID;references:ID" json:"channel,omitempty"`
	ConversationID *uuid.UUID    `gorm:"type:uuid;column:conversation_id;index" json:"conversation_id,omitempty"`
	Conversation   *Conversation `gorm:"foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	ParentID       *uuid.UUID    `gorm:"type:uuid;column:parent_id;index" json:"parent_id,omitempty"`
	Content        string        `gorm:"column:content;not null" json:"content"`
	Attachments    []*Attachment `gorm:"foreignKey:MessageID;references:ID" json:"attachments,omitempty"`

	Embedding      *pgvector.Vector `gorm:"type:vector(1536);column:embedding" json:"-"`
	Context        *string          `gorm:"column:context" json:"context,omitempty"`
	FormattedChain *string          `gorm:"column:formatted_chain" json:"formatted_chain,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Message) TableName() string { return "message" }

func (m *Message) ContextKind() ContextKind {
	if m.ConversationID != nil {
		return ContextConversation
	}
	return ContextChannel
}

func (m *Message) ContextID() uuid.UUID {
	if m.ConversationID != nil {
		return *m.ConversationID
	}
	if m.ChannelID != nil {
		return *m.ChannelID
	}
	return uuid.Nil
}

// SameContext reports whether two messages live in the same channel or the
// same conversation.
func (m *Message) SameContext(other *Message) bool {
	if m == nil || other == nil {
		return false
	}
	return m.ContextKind() == other.ContextKind() && m.ContextID() == other.ContextID()
}
