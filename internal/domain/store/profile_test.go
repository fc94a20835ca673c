package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storefront/stores/internal/domain/shared"
)

func newTestProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := NewProfile(uuid.New(), "marketplace", "Acme Outlet", "acme-outlet", "en", "usd")
	require.NoError(t, err)
	return p
}

func TestNewProfile(t *testing.T) {
	t.Run("creates draft profile with version 1", func(t *testing.T) {
		p := newTestProfile(t)

		assert.Equal(t, StatusDraft, p.Status)
		assert.Equal(t, 1, p.Version)
		assert.Equal(t, "USD", p.Currency, "currency is normalized to upper case")
		assert.Equal(t, "acme-outlet", p.Slug)
		assert.NotEqual(t, uuid.Nil, p.ID)
	})

	t.Run("defaults empty namespace", func(t *testing.T) {
		p, err := NewProfile(uuid.New(), "", "Acme", "acme", "en", "USD")
		require.NoError(t, err)
		assert.Equal(t, DefaultNamespace, p.Namespace)
	})

	t.Run("rejects missing owner", func(t *testing.T) {
		_, err := NewProfile(uuid.Nil, "", "Acme", "acme", "en", "USD")
		require.Error(t, err)
	})

	t.Run("rejects bad display name", func(t *testing.T) {
		for _, name := range []string{"", "a", "<script>", "  "} {
			_, err := NewProfile(uuid.New(), "", name, "acme", "en", "USD")
			assert.Error(t, err, "name %q should be rejected", name)
		}
	})

	t.Run("rejects bad slug", func(t *testing.T) {
		for _, slug := range []string{"", "UPPER", "two--dashes", "-leading", "trailing-", "with space"} {
			_, err := NewProfile(uuid.New(), "", "Acme", slug, "en", "USD")
			assert.Error(t, err, "slug %q should be rejected", slug)
		}
	})
}

func TestModerationStatus_CanTransitionTo(t *testing.T) {
	allowed := map[ModerationStatus][]ModerationStatus{
		StatusDraft:      {StatusModerating},
		StatusModerating: {StatusPublished, StatusBlocked},
		StatusPublished:  {StatusBlocked},
		StatusBlocked:    {},
	}
	all := []ModerationStatus{StatusDraft, StatusModerating, StatusPublished, StatusBlocked}

	for from, targets := range allowed {
		legal := make(map[ModerationStatus]bool, len(targets))
		for _, to := range targets {
			legal[to] = true
		}
		for _, to := range all {
			assert.Equal(t, legal[to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestProfile_TransitionTo(t *testing.T) {
	t.Run("legal chain", func(t *testing.T) {
		p := newTestProfile(t)

		require.NoError(t, p.TransitionTo(StatusModerating))
		require.NoError(t, p.TransitionTo(StatusPublished))
		require.NoError(t, p.TransitionTo(StatusBlocked))
		assert.Equal(t, StatusBlocked, p.Status)
	})

	t.Run("illegal transition leaves state untouched", func(t *testing.T) {
		p := newTestProfile(t)

		err := p.TransitionTo(StatusPublished)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)
		assert.Equal(t, StatusDraft, p.Status)
	})

	t.Run("blocked is terminal", func(t *testing.T) {
		p := newTestProfile(t)
		require.NoError(t, p.TransitionTo(StatusModerating))
		require.NoError(t, p.TransitionTo(StatusBlocked))

		for _, to := range []ModerationStatus{StatusDraft, StatusModerating, StatusPublished} {
			assert.Error(t, p.TransitionTo(to), "BLOCKED -> %s must fail", to)
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		p := newTestProfile(t)
		assert.Error(t, p.TransitionTo(ModerationStatus("ARCHIVED")))
	})
}

func TestProfile_Rename(t *testing.T) {
	p := newTestProfile(t)

	require.NoError(t, p.Rename("Acme Store 2"))
	assert.Equal(t, "Acme Store 2", p.DisplayName)

	assert.Error(t, p.Rename(""))
	assert.Equal(t, "Acme Store 2", p.DisplayName)
}

func TestProfile_SetContact(t *testing.T) {
	p := newTestProfile(t)

	require.NoError(t, p.SetContact("owner@acme.example", "+1 (555) 010-9999"))
	assert.Equal(t, "owner@acme.example", p.ContactEmail)

	assert.Error(t, p.SetContact("owner@acme.example", "not-a-phone!"))
}
