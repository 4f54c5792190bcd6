package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImageRecord is one image's metadata, blob reference and label history
// inside a dataset. Records have no lifecycle of their own: they are
// created only by batch ingestion and removed only when their dataset is.
type ImageRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DatasetID uuid.UUID `gorm:"type:uuid;not null;index" json:"datasetId"`

	// Position preserves insertion order across batches. Assigned under a
	// dataset row lock, never re-sorted on mutation.
	Position int64 `gorm:"column:position;not null" json:"-"`

	BlobKey      string    `gorm:"column:blob_key;not null" json:"fileId"`
	OriginalName string    `gorm:"column:original_name;not null" json:"originalName"`
	UploadDate   time.Time `gorm:"column:upload_date;not null" json:"uploadDate"`

	// IsCropped marks uploads the client pre-cropped before sending. Set at
	// ingestion only; label mutations and resets leave it alone.
	IsCropped bool `gorm:"column:is_cropped;not null;default:false" json:"isCropped"`

	CurrentLabel     string       `gorm:"column:current_label" json:"label"`
	CurrentLabeledBy string       `gorm:"column:current_labeled_by" json:"labeledBy"`
	CurrentLabeledAt *time.Time   `gorm:"column:current_labeled_at" json:"labeledAt,omitempty"`
	BoundingBox      *BoundingBox `gorm:"column:bounding_box;type:jsonb" json:"boundingBox,omitempty"`

	LabelHistory datatypes.JSONSlice[LabelEvent] `gorm:"column:label_history;type:jsonb" json:"labels"`

	// Version is the optimistic counter for the atomic per-record update
	// primitive. Every committed mutation of this row increments it.
	Version int `gorm:"column:version;not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updatedAt"`
}

func (ImageRecord) TableName() string { return "image_record" }

func (r *ImageRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Labeled reports whether the record carries a usable current label.
func (r *ImageRecord) Labeled() bool {
	return strings.TrimSpace(r.CurrentLabel) != ""
}
