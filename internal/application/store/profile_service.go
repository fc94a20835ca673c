// Package store implements the application services for store profiles.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/stores/internal/domain/pricing"
	"github.com/storefront/stores/internal/domain/shared"
	"github.com/storefront/stores/internal/domain/store"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// defaultUpdateRetries bounds how often an update is replayed after
// losing an optimistic-lock race before the conflict is surfaced.
const defaultUpdateRetries = 3

// fallbackLocale keys cache entries for requests without a locale
const fallbackLocale = "default"

// ProfileCache is the read-through cache in front of the repository.
// Implementations must degrade to the loader when the backend is down.
type ProfileCache interface {
	Fetch(ctx context.Context, id uuid.UUID, locale string, loader func(ctx context.Context) (*store.Profile, error)) (*store.Profile, error)
	Invalidate(ctx context.Context, id uuid.UUID)
}

// RateSource exposes the active exchange-rate snapshot. Current never
// blocks and may return nil before the first successful refresh.
type RateSource interface {
	Current() *pricing.RateSnapshot
}

// ProfileService orchestrates store profile reads and writes
type ProfileService struct {
	repo          store.ProfileRepository
	cache         ProfileCache
	rates         RateSource
	logger        *zap.Logger
	updateRetries int
}

// NewProfileService creates a new ProfileService
func NewProfileService(repo store.ProfileRepository, cache ProfileCache, rates RateSource, log *zap.Logger) *ProfileService {
	return &ProfileService{
		repo:          repo,
		cache:         cache,
		rates:         rates,
		logger:        log.Named("profile-service"),
		updateRetries: defaultUpdateRetries,
	}
}

// SetUpdateRetries overrides the optimistic-lock retry budget (for tests)
func (s *ProfileService) SetUpdateRetries(n int) {
	if n > 0 {
		s.updateRetries = n
	}
}

// GetProfile returns a profile through the cache, optionally annotated
// with the rate for rendering prices in displayCurrency. Rate lookup is
// best-effort: an unknown currency or a not-yet-refreshed snapshot
// leaves the exchange block empty rather than failing the read.
func (s *ProfileService) GetProfile(ctx context.Context, id uuid.UUID, locale, displayCurrency string) (*ProfileResponse, error) {
	profile, err := s.cache.Fetch(ctx, id, normalizeLocale(locale), func(ctx context.Context) (*store.Profile, error) {
		return s.repo.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	resp := toProfileResponse(profile)
	s.attachExchange(&resp, profile, displayCurrency)
	return &resp, nil
}

// GetProfileBySlug returns a profile by its slug, bypassing the cache.
// Slug reads are rare (storefront bootstrap) and the slug is mutable,
// so they always hit the system of record.
func (s *ProfileService) GetProfileBySlug(ctx context.Context, slug string) (*ProfileResponse, error) {
	profile, err := s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	resp := toProfileResponse(profile)
	return &resp, nil
}

// ListProfiles returns the profiles owned by ownerID, paginated
func (s *ProfileService) ListProfiles(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (*ListProfilesResponse, error) {
	filter.Normalize()

	profiles, total, err := s.repo.FindByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]ProfileResponse, 0, len(profiles))
	for i := range profiles {
		items = append(items, toProfileResponse(&profiles[i]))
	}
	return &ListProfilesResponse{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// CreateProfile validates and persists a new profile in DRAFT status
func (s *ProfileService) CreateProfile(ctx context.Context, req CreateProfileRequest) (*ProfileResponse, error) {
	if _, err := language.Parse(req.Locale); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown locale: "+req.Locale)
	}
	if _, err := currency.ParseISO(req.Currency); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown currency code: "+req.Currency)
	}

	profile, err := store.NewProfile(req.OwnerID, req.Namespace, req.DisplayName, req.Slug, req.Locale, req.Currency)
	if err != nil {
		return nil, err
	}
	profile.ShortDescription = req.ShortDescription
	profile.Slogan = req.Slogan
	profile.Country = req.Country
	profile.CoverURL = req.CoverURL
	profile.LogoURL = req.LogoURL
	if err := profile.SetContact(req.ContactEmail, req.ContactPhone); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, err
	}

	// Clear any negative entries cached while the profile did not exist.
	s.cache.Invalidate(ctx, profile.ID)

	s.logger.Info("store profile created",
		zap.String("profile_id", profile.ID.String()),
		zap.String("slug", profile.Slug),
	)

	resp := toProfileResponse(profile)
	return &resp, nil
}

// UpdateProfile applies a partial update under optimistic locking. A
// lost race is replayed against a fresh read up to the retry budget;
// past that the conflict is returned to the caller.
func (s *ProfileService) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*ProfileResponse, error) {
	var lastErr error
	for attempt := 0; attempt < s.updateRetries; attempt++ {
		// Writes start from the system of record: a cached version that
		// lags a committed write would lose the version check outright.
		profile, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := applyUpdate(profile, req); err != nil {
			return nil, err
		}

		profile.IncrementVersion()
		err = s.repo.UpdateWithVersion(ctx, profile)
		if err == nil {
			s.cache.Invalidate(ctx, id)
			resp := toProfileResponse(profile)
			return &resp, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("update lost optimistic-lock race, retrying",
			zap.String("profile_id", id.String()),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, lastErr
}

// TransitionStatus moves a profile through the moderation state machine.
// The caller states the status it observed; if another moderator got
// there first the request fails with a conflict instead of retrying,
// because replaying a moderation decision on changed state is wrong.
func (s *ProfileService) TransitionStatus(ctx context.Context, id uuid.UUID, req TransitionStatusRequest) (*ProfileResponse, error) {
	from := store.ModerationStatus(strings.ToUpper(req.From))
	to := store.ModerationStatus(strings.ToUpper(req.To))
	if !from.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown moderation status: "+req.From)
	}

	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile.Status != from {
		return nil, shared.NewDomainError("CONCURRENCY_CONFLICT",
			"Store is in status "+profile.Status.String()+", not "+from.String())
	}

	if err := profile.TransitionTo(to); err != nil {
		return nil, err
	}

	profile.IncrementVersion()
	if err := s.repo.UpdateWithVersion(ctx, profile); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)

	s.logger.Info("store profile status changed",
		zap.String("profile_id", id.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)

	resp := toProfileResponse(profile)
	return &resp, nil
}

// attachExchange annotates the response with the from→to rate when the
// active snapshot quotes both sides.
func (s *ProfileService) attachExchange(resp *ProfileResponse, profile *store.Profile, displayCurrency string) {
	displayCurrency = strings.ToUpper(strings.TrimSpace(displayCurrency))
	if displayCurrency == "" || displayCurrency == profile.Currency {
		return
	}

	snapshot := s.rates.Current()
	if snapshot == nil {
		return
	}
	rate, ok := snapshot.Rate(profile.Currency, displayCurrency)
	if !ok {
		return
	}
	resp.Exchange = &ExchangeInfo{
		DisplayCurrency: displayCurrency,
		Rate:            rate.String(),
		FetchedAt:       snapshot.FetchedAt,
		Generation:      snapshot.Generation,
	}
}

func applyUpdate(profile *store.Profile, req UpdateProfileRequest) error {
	if req.DisplayName != nil {
		if err := profile.Rename(*req.DisplayName); err != nil {
			return err
		}
	}
	if req.Slug != nil {
		if err := profile.SetSlug(*req.Slug); err != nil {
			return err
		}
	}
	if req.ContactEmail != nil || req.ContactPhone != nil {
		email := profile.ContactEmail
		phone := profile.ContactPhone
		if req.ContactEmail != nil {
			email = *req.ContactEmail
		}
		if req.ContactPhone != nil {
			phone = *req.ContactPhone
		}
		if err := profile.SetContact(email, phone); err != nil {
			return err
		}
	}
	if req.ShortDescription != nil {
		profile.ShortDescription = *req.ShortDescription
	}
	if req.Slogan != nil {
		profile.Slogan = *req.Slogan
	}
	if req.Country != nil {
		profile.Country = *req.Country
	}
	if req.CoverURL != nil {
		profile.CoverURL = *req.CoverURL
	}
	if req.LogoURL != nil {
		profile.LogoURL = *req.LogoURL
	}
	profile.Touch()
	return nil
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		return fallbackLocale
	}
	return locale
}
