package models

import (
	"time"

	"github.com/google/uuid"
)

type Item struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"type:varchar(50);index" json:"category"`
	Price       float64   `gorm:"not null;default:0" json:"price"`

	// Username snapshot taken at creation time. Kept as a plain string
	// so the item survives deletion of its creator.
	CreatedBy string `gorm:"type:varchar(50)" json:"created_by"`

	// Filename of the uploaded image inside the blob store, empty when
	// no image was supplied.
	ImagePath string `gorm:"type:varchar(100)" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemFilter is a conjunction: every set field must match.
type ItemFilter struct {
	Category string   // exact match
	Search   string   // case-insensitive substring over name/description
	MinPrice *float64 // inclusive
	MaxPrice *float64 // inclusive
}
