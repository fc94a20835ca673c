package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/stores/internal/domain/shared"
	"github.com/storefront/stores/internal/domain/store"
	"gorm.io/gorm"
)

// GormStoreProfileRepository implements store.ProfileRepository using GORM
type GormStoreProfileRepository struct {
	db *gorm.DB
}

// NewGormStoreProfileRepository creates a new GormStoreProfileRepository
func NewGormStoreProfileRepository(db *gorm.DB) *GormStoreProfileRepository {
	return &GormStoreProfileRepository{db: db}
}

// FindByID finds a store profile by its ID
func (r *GormStoreProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*store.Profile, error) {
	var profile store.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, translateDBError(err)
	}
	return &profile, nil
}

// FindBySlug finds a store profile by its slug
func (r *GormStoreProfileRepository) FindBySlug(ctx context.Context, slug string) (*store.Profile, error) {
	var profile store.Profile
	if err := r.db.WithContext(ctx).First(&profile, "slug = ?", slug).Error; err != nil {
		return nil, translateDBError(err)
	}
	return &profile, nil
}

// FindByOwner finds all store profiles owned by a user, with a total count
func (r *GormStoreProfileRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]store.Profile, int64, error) {
	filter.Normalize()

	base := r.db.WithContext(ctx).Model(&store.Profile{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, translateDBError(err)
	}

	var profiles []store.Profile
	err := base.
		Order(filter.OrderBy + " " + filter.OrderDir).
		Limit(filter.PageSize).
		Offset(filter.Offset()).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, translateDBError(err)
	}
	return profiles, total, nil
}

// Create persists a new store profile. Display-name and slug uniqueness
// are enforced by the database constraints inside a single transaction,
// so two racing creates cannot both commit.
func (r *GormStoreProfileRepository) Create(ctx context.Context, profile *store.Profile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(profile).Error
	})
	return translateDBError(err)
}

// UpdateWithVersion persists the profile conditioned on the previously
// read version (profile.Version must already be incremented). A version
// mismatch performs no write and yields shared.ErrConcurrencyConflict;
// the caller must re-read and retry.
func (r *GormStoreProfileRepository) UpdateWithVersion(ctx context.Context, profile *store.Profile) error {
	result := r.db.WithContext(ctx).Model(&store.Profile{}).
		Where("id = ? AND version = ?", profile.ID, profile.Version-1).
		Updates(map[string]interface{}{
			"display_name":      profile.DisplayName,
			"slug":              profile.Slug,
			"short_description": profile.ShortDescription,
			"slogan":            profile.Slogan,
			"locale":            profile.Locale,
			"currency":          profile.Currency,
			"status":            profile.Status,
			"contact_email":     profile.ContactEmail,
			"contact_phone":     profile.ContactPhone,
			"country":           profile.Country,
			"cover_url":         profile.CoverURL,
			"logo_url":          profile.LogoURL,
			"version":           profile.Version,
			"updated_at":        profile.UpdatedAt,
		})
	if result.Error != nil {
		return translateDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		// Either the row is gone or another writer won the race.
		var count int64
		if err := r.db.WithContext(ctx).Model(&store.Profile{}).
			Where("id = ?", profile.ID).
			Count(&count).Error; err != nil {
			return translateDBError(err)
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ store.ProfileRepository = (*GormStoreProfileRepository)(nil)
