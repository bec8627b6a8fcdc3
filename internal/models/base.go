package models

import (
	"time"

	"budgethq/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// SoftDelete marks a row as hidden without purging it. Queries filter on
// deleted_at explicitly; there is no implicit default scope.
type SoftDelete struct {
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the row has been soft-deleted.
func (s SoftDelete) IsDeleted() bool { return s.DeletedAt != nil }

// Live is a GORM scope selecting rows that are not soft-deleted.
func Live(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}
