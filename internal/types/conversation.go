package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a direct-message pairing between two users.
type Conversation struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ParticipantAID uuid.UUID      `gorm:"type:uuid;column:participant_a_id;not null;index" json:"participant_a_id"`
	ParticipantA   *User          `gorm:"foreignKey:ParticipantAID;references:ID" json:"participant_a,omitempty"`
	ParticipantBID uuid.UUID      `gorm:"type:uuid;column:participant_b_id;not null;index" json:"participant_b_id"`
	ParticipantB   *User          `gorm:"foreignKey:ParticipantBID;references:ID" json:"participant_b,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Conversation) TableName() string { return "conversation" }

// RecipientName returns the display label of the participant other than viewer.
func (c *Conversation) RecipientName(viewer uuid.UUID) string {
	if c == nil {
		return "Unknown User"
	}
	if c.ParticipantAID == viewer {
		return c.ParticipantB.SenderName()
	}
	return c.ParticipantA.SenderName()
}
