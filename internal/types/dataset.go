package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dataset is the aggregate root: a named image collection under a single
// owner. The image collection itself lives in ImageRecord rows keyed by
// DatasetID; ImageCount is derived on read and is never a stored column.
type Dataset struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	OwnerID     string    `gorm:"column:owner_id" json:"userId"`

	// Version guards whole-aggregate field writes (rename, owner repair).
	// Image mutations never bump it; they version per record instead.
	Version int `gorm:"column:version;not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updatedAt"`

	ImageCount int64          `gorm:"-" json:"imageCount"`
	Images     []*ImageRecord `gorm:"foreignKey:DatasetID;references:ID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

func (Dataset) TableName() string { return "dataset" }

func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
