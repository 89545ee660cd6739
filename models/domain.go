package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaItem is a queued image or floorplan download for the media mirror.
type MediaItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ListingID   string    `json:"listing_id" db:"listing_id"`
	MediaType   string    `json:"media_type" db:"media_type"` // image, floorplan
	OriginalURL string    `json:"original_url" db:"original_url"`
	S3Key       *string   `json:"s3_key" db:"s3_key"` // nil until uploaded
	ContentHash string    `json:"content_hash" db:"content_hash"`
	SizeBytes   *int64    `json:"size_bytes" db:"size_bytes"`
	Status      string    `json:"status" db:"status"`
	Attempts    int       `json:"attempts" db:"attempts"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

const (
	MediaTypeImage     = "image"
	MediaTypeFloorplan = "floorplan"
)

const (
	MediaStatusPending  = "pending"
	MediaStatusUploaded = "uploaded"
	MediaStatusFailed   = "failed"
)
