package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// VersionedEntity provides common fields for entities guarded by
// optimistic concurrency. Version starts at 1 and increments exactly
// once per committed mutation.
type VersionedEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// GetID returns the entity ID
func (e *VersionedEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *VersionedEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *VersionedEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// GetVersion returns the version used for optimistic locking
func (e *VersionedEntity) GetVersion() int {
	return e.Version
}

// IncrementVersion increments the version number
func (e *VersionedEntity) IncrementVersion() {
	e.Version++
}

// NewVersionedEntity creates a new entity with a generated ID and version 1
func NewVersionedEntity() VersionedEntity {
	now := time.Now().UTC()
	return VersionedEntity{
		ID:        uuid.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Filter holds common listing parameters
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// sortableColumns whitelists order-by targets; anything else falls back
// to created_at since OrderBy is interpolated into SQL.
var sortableColumns = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"display_name": true,
	"status":       true,
}

// Normalize applies defaults, clamps page sizes and rejects unknown
// sort columns
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	if !sortableColumns[f.OrderBy] {
		f.OrderBy = "created_at"
	}
	if f.OrderDir != "asc" {
		f.OrderDir = "desc"
	}
}

// Offset returns the SQL offset for the filter
func (f *Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
