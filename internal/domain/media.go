package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaItem is one file attached to a listing. Position is the 0-based display order.
type MediaItem struct {
	MediaID     uuid.UUID `gorm:"column:media_id;type:uuid;primaryKey" json:"media_id"`
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	FileRef     string    `gorm:"column:file_ref;not null" json:"file_ref"`
	Kind        MediaKind `gorm:"column:kind;type:varchar(10);not null" json:"kind"`
	ContentType string    `gorm:"column:content_type;not null" json:"content_type"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	Position    int       `gorm:"column:position;not null;default:0;index" json:"position"`
	IsPrimary   bool      `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (MediaItem) TableName() string {
	return "media_items"
}

func (m *MediaItem) BeforeCreate(tx *gorm.DB) error {
	if m.MediaID == uuid.Nil {
		m.MediaID = uuid.New()
	}
	return nil
}
