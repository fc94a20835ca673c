package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/stores/internal/domain/store"
)

// CreateProfileRequest carries the fields needed to open a new store profile
type CreateProfileRequest struct {
	OwnerID          uuid.UUID `json:"owner_id" binding:"required"`
	Namespace        string    `json:"namespace"`
	DisplayName      string    `json:"display_name" binding:"required"`
	Slug             string    `json:"slug" binding:"required,slug"`
	Locale           string    `json:"locale" binding:"required"`
	Currency         string    `json:"currency" binding:"required,len=3"`
	ShortDescription string    `json:"short_description"`
	Slogan           string    `json:"slogan"`
	ContactEmail     string    `json:"contact_email" binding:"omitempty,email"`
	ContactPhone     string    `json:"contact_phone"`
	Country          string    `json:"country"`
	CoverURL         string    `json:"cover_url" binding:"omitempty,url"`
	LogoURL          string    `json:"logo_url" binding:"omitempty,url"`
}

// UpdateProfileRequest carries a partial update; nil fields are untouched
type UpdateProfileRequest struct {
	DisplayName      *string `json:"display_name"`
	Slug             *string `json:"slug" binding:"omitempty,slug"`
	ShortDescription *string `json:"short_description"`
	Slogan           *string `json:"slogan"`
	ContactEmail     *string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone     *string `json:"contact_phone"`
	Country          *string `json:"country"`
	CoverURL         *string `json:"cover_url" binding:"omitempty,url"`
	LogoURL          *string `json:"logo_url" binding:"omitempty,url"`
}

// TransitionStatusRequest moves a profile through the moderation flow.
// From is the status the caller last observed; a mismatch rejects the
// transition instead of silently overriding a concurrent moderator.
type TransitionStatusRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// ExchangeInfo reports the applied display-currency conversion
type ExchangeInfo struct {
	DisplayCurrency string    `json:"display_currency"`
	Rate            string    `json:"rate"`
	FetchedAt       time.Time `json:"fetched_at"`
	Generation      uint64    `json:"generation"`
}

// ProfileResponse is the external representation of a store profile
type ProfileResponse struct {
	ID               uuid.UUID     `json:"id"`
	OwnerID          uuid.UUID     `json:"owner_id"`
	Namespace        string        `json:"namespace"`
	DisplayName      string        `json:"display_name"`
	Slug             string        `json:"slug"`
	ShortDescription string        `json:"short_description,omitempty"`
	Slogan           string        `json:"slogan,omitempty"`
	Locale           string        `json:"locale"`
	Currency         string        `json:"currency"`
	Status           string        `json:"status"`
	ContactEmail     string        `json:"contact_email,omitempty"`
	ContactPhone     string        `json:"contact_phone,omitempty"`
	Country          string        `json:"country,omitempty"`
	CoverURL         string        `json:"cover_url,omitempty"`
	LogoURL          string        `json:"logo_url,omitempty"`
	Rating           *float64      `json:"rating,omitempty"`
	Version          int           `json:"version"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Exchange         *ExchangeInfo `json:"exchange,omitempty"`
}

// ListProfilesResponse is a paginated list of profiles
type ListProfilesResponse struct {
	Items    []ProfileResponse `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func toProfileResponse(p *store.Profile) ProfileResponse {
	return ProfileResponse{
		ID:               p.ID,
		OwnerID:          p.OwnerID,
		Namespace:        p.Namespace,
		DisplayName:      p.DisplayName,
		Slug:             p.Slug,
		ShortDescription: p.ShortDescription,
		Slogan:           p.Slogan,
		Locale:           p.Locale,
		Currency:         p.Currency,
		Status:           p.Status.String(),
		ContactEmail:     p.ContactEmail,
		ContactPhone:     p.ContactPhone,
		Country:          p.Country,
		CoverURL:         p.CoverURL,
		LogoURL:          p.LogoURL,
		Rating:           p.Rating,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
