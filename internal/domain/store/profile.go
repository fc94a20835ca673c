package store

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/stores/internal/domain/shared"
)

// ModerationStatus represents the moderation state of a store profile
type ModerationStatus string

const (
	StatusDraft      ModerationStatus = "DRAFT"
	StatusModerating ModerationStatus = "MODERATING"
	StatusPublished  ModerationStatus = "PUBLISHED"
	StatusBlocked    ModerationStatus = "BLOCKED"
)

// IsValid checks if the status is a known ModerationStatus
func (s ModerationStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusModerating, StatusPublished, StatusBlocked:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s ModerationStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// BLOCKED is terminal.
func (s ModerationStatus) CanTransitionTo(target ModerationStatus) bool {
	switch s {
	case StatusDraft:
		return target == StatusModerating
	case StatusModerating:
		return target == StatusPublished || target == StatusBlocked
	case StatusPublished:
		return target == StatusBlocked
	case StatusBlocked:
		return false
	}
	return false
}

// Profile is the aggregate root for a store profile.
// DisplayName is unique within a namespace, Slug is unique globally;
// both are enforced by the system of record, not here.
type Profile struct {
	shared.VersionedEntity
	OwnerID          uuid.UUID        `gorm:"type:uuid;not null;index"`
	Namespace        string           `gorm:"type:varchar(50);not null;default:'default';uniqueIndex:idx_store_profiles_ns_name,priority:1"`
	DisplayName      string           `gorm:"type:varchar(100);not null;uniqueIndex:idx_store_profiles_ns_name,priority:2"`
	Slug             string           `gorm:"type:varchar(100);not null;uniqueIndex"`
	ShortDescription string           `gorm:"type:text"`
	Slogan           string           `gorm:"type:varchar(200)"`
	Locale           string           `gorm:"type:varchar(10);not null"`
	Currency         string           `gorm:"type:char(3);not null"`
	Status           ModerationStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	ContactEmail     string           `gorm:"type:varchar(200)"`
	ContactPhone     string           `gorm:"type:varchar(50)"`
	Country          string           `gorm:"type:varchar(100)"`
	CoverURL         string           `gorm:"type:varchar(500)"`
	LogoURL          string           `gorm:"type:varchar(500)"`
	Rating           *float64         `gorm:""`
}

// TableName returns the table name for GORM
func (Profile) TableName() string {
	return "store_profiles"
}

const (
	// DefaultNamespace is used when a caller does not scope the profile explicitly
	DefaultNamespace = "default"

	minDisplayNameLen = 2
	maxDisplayNameLen = 100
	maxSlugLen        = 100
)

var (
	// display names allow unicode letters, digits, spaces and a few separators
	displayNameRe = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} '&._-]*$`)
	slugRe        = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	phoneRe       = regexp.MustCompile(`^\+?[0-9 ()-]{5,30}$`)
)

// NewProfile creates a new store profile in DRAFT status
func NewProfile(ownerID uuid.UUID, namespace, displayName, slug, locale, currency string) (*Profile, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if err := ValidateDisplayName(displayName); err != nil {
		return nil, err
	}
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Owner ID is required")
	}

	return &Profile{
		VersionedEntity: shared.NewVersionedEntity(),
		OwnerID:         ownerID,
		Namespace:       namespace,
		DisplayName:     displayName,
		Slug:            strings.ToLower(slug),
		Locale:          locale,
		Currency:        strings.ToUpper(currency),
		Status:          StatusDraft,
	}, nil
}

// TransitionTo moves the profile to the target status if the transition is legal
func (p *Profile) TransitionTo(target ModerationStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Unknown moderation status: "+string(target))
	}
	if !p.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_TRANSITION",
			"Cannot transition store from "+p.Status.String()+" to "+target.String())
	}
	p.Status = target
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Rename changes the display name
func (p *Profile) Rename(displayName string) error {
	if err := ValidateDisplayName(displayName); err != nil {
		return err
	}
	p.DisplayName = displayName
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SetSlug changes the slug
func (p *Profile) SetSlug(slug string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	p.Slug = strings.ToLower(slug)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SetContact updates the contact fields
func (p *Profile) SetContact(email, phone string) error {
	if phone != "" && !phoneRe.MatchString(phone) {
		return shared.NewDomainError("INVALID_INPUT", "Invalid phone format")
	}
	p.ContactEmail = email
	p.ContactPhone = phone
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Touch bumps the updated-at timestamp
func (p *Profile) Touch() {
	p.UpdatedAt = time.Now().UTC()
}

// ValidateDisplayName checks length and charset of a display name
func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < minDisplayNameLen || len(trimmed) > maxDisplayNameLen {
		return shared.NewDomainError("INVALID_INPUT", "Display name must be between 2 and 100 characters")
	}
	if !displayNameRe.MatchString(trimmed) {
		return shared.NewDomainError("INVALID_INPUT", "Display name contains invalid characters")
	}
	return nil
}

// ValidateSlug checks the slug format (lowercase, digits, hyphen separated)
func ValidateSlug(slug string) error {
	s := strings.ToLower(strings.TrimSpace(slug))
	if s == "" || len(s) > maxSlugLen {
		return shared.NewDomainError("INVALID_INPUT", "Slug must be between 1 and 100 characters")
	}
	if !slugRe.MatchString(s) {
		return shared.NewDomainError("INVALID_INPUT", "Slug may only contain lowercase letters, digits and hyphens")
	}
	return nil
}
