package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MimeCategory buckets attachments by the analysis they receive.
type MimeCategory string

const (
	MimeImage MimeCategory = "image"
	MimeAudio MimeCategory = "audio"
	MimeVideo MimeCategory = "video"
	MimeOther MimeCategory = "other"
)

// CategorizeMime maps a raw mime type onto a MimeCategory at the boundary.
func CategorizeMime(mimeType string) MimeCategory {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return MimeImage
	case strings.HasPrefix(mt, "audio/"):
		return MimeAudio
	case strings.HasPrefix(mt, "video/"):
		return MimeVideo
	default:
		return MimeOther
	}
}

// KindLabel is the human label used in transcripts ("Image", "Audio", "Video").
// Empty for attachments that never get a description.
func (c MimeCategory) KindLabel() string {
	switch c {
	case MimeImage:
		return "Image"
	case MimeAudio:
		return "Audio"
	case MimeVideo:
		return "Video"
	default:
		return ""
	}
}

// Attachment is a file attached to a message. Description holds the raw
// describer output; FormattedDescription holds the display wrapper
// ("<sender> shared '<file>' ..."). The two are stored separately so the
// formatter never has to parse the wrapper back out of the raw text.
type Attachment struct {
	ID                   uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MessageID            uuid.UUID    `gorm:"type:uuid;column:message_id;not null;index" json:"message_id"`
	FileName             string       `gorm:"column:file_name;not null" json:"file_name"`
	MimeType             string       `gorm:"column:mime_type" json:"mime_type"`
	MimeCategory         MimeCategory `gorm:"column:mime_category;not null;default:'other'" json:"mime_category"`
	StorageKey           string       `gorm:"column:storage_key;not null" json:"storage_key"`
	SizeBytes            int64        `gorm:"column:size_bytes" json:"size_bytes"`
	Caption              *string      `gorm:"column:caption" json:"caption,omitempty"`
	Description          *string      `gorm:"column:description" json:"description,omitempty"`
	FormattedDescription *string      `gorm:"column:formatted_description" json:"formatted_description,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Attachment) TableName() string { return "attachment" }
