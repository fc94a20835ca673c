package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/stores/internal/domain/shared"
)

// ProfileRepository defines persistence operations for store profiles.
// Implementations return shared.ErrNotFound for missing rows,
// shared.ErrAlreadyExists for uniqueness violations,
// shared.ErrConcurrencyConflict for lost optimistic-lock races and
// shared.ErrUnavailable for transient connectivity failures.
type ProfileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	FindBySlug(ctx context.Context, slug string) (*Profile, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]Profile, int64, error)
	Create(ctx context.Context, profile *Profile) error
	// UpdateWithVersion persists the profile conditioned on the previous
	// version still being stored (profile.Version must already be the new,
	// incremented value). No write happens on a version mismatch.
	UpdateWithVersion(ctx context.Context, profile *Profile) error
}
