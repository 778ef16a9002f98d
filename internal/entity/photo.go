package entity

import (
	"time"

	"github.com/google/uuid"
)

// Photo is one normalized upload: the primary JPEG and, when available, its thumbnail.
type Photo struct {
	ID          uuid.UUID `json:"id"`
	BatchID     uuid.UUID `json:"batch_id"`
	SourceName  string    `json:"source_name"`
	FileName    string    `json:"file_name"`
	ObjectKey   string    `json:"object_key"`
	ThumbKey    string    `json:"thumb_key,omitempty"`
	ContentHash []byte    `json:"content_hash"`
	SizeBytes   int64     `json:"size_bytes"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Photo) HasThumbnail() bool {
	return p.ThumbKey != ""
}
