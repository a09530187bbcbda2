package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DisplayName string         `gorm:"column:display_name" json:"display_name"`
	FullName    string         `gorm:"column:full_name" json:"full_name"`
	AvatarURL   string         `gorm:"column:avatar_url" json:"avatar_url"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

// SenderName resolves the label used in transcripts and search results:
// display name, falling back to full name, falling back to "Unknown User".
func (u *User) SenderName() string {
	if u == nil {
		return "Unknown User"
	}
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return "Unknown User"
}
