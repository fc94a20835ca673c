package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	appstore "github.com/storefront/stores/internal/application/store"
	"github.com/storefront/stores/internal/domain/pricing"
	"github.com/storefront/stores/internal/domain/shared"
	"github.com/storefront/stores/internal/domain/store"
	"github.com/storefront/stores/internal/interfaces/http/dto"
	"github.com/storefront/stores/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

type stubRepository struct {
	mock.Mock
}

func (m *stubRepository) FindByID(ctx context.Context, id uuid.UUID) (*store.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Profile), args.Error(1)
}

func (m *stubRepository) FindBySlug(ctx context.Context, slug string) (*store.Profile, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Profile), args.Error(1)
}

func (m *stubRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]store.Profile, int64, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]store.Profile), args.Get(1).(int64), args.Error(2)
}

func (m *stubRepository) Create(ctx context.Context, profile *store.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *stubRepository) UpdateWithVersion(ctx context.Context, profile *store.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

type noopCache struct{}

func (noopCache) Fetch(ctx context.Context, id uuid.UUID, locale string, loader func(ctx context.Context) (*store.Profile, error)) (*store.Profile, error) {
	return loader(ctx)
}

func (noopCache) Invalidate(ctx context.Context, id uuid.UUID) {}

type noRates struct{}

func (noRates) Current() *pricing.RateSnapshot { return nil }

func setupRouter(t *testing.T, repo *stubRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	svc := appstore.NewProfileService(repo, noopCache{}, noRates{}, zap.NewNop())
	h := NewStoreProfileHandler(svc)

	engine := gin.New()
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func seedProfile(t *testing.T) *store.Profile {
	t.Helper()
	p, err := store.NewProfile(uuid.New(), "default", "Vinyl Attic", "vinyl-attic", "en", "USD")
	require.NoError(t, err)
	return p
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestStoreProfileHandler_Get(t *testing.T) {
	t.Run("returns the profile", func(t *testing.T) {
		repo := new(stubRepository)
		engine := setupRouter(t, repo)

		p := seedProfile(t)
		repo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/"+p.ID.String(), nil)
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		assert.True(t, resp.Success)
	})

	t.Run("rejects a malformed ID", func(t *testing.T) {
		engine := setupRouter(t, new(stubRepository))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/not-a-uuid", nil)
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps a missing profile to 404", func(t *testing.T) {
		repo := new(stubRepository)
		engine := setupRouter(t, repo)

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/"+id.String(), nil)
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("maps a cache-and-database outage to 503", func(t *testing.T) {
		repo := new(stubRepository)
		engine := setupRouter(t, repo)

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrUnavailable)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/"+id.String(), nil)
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestStoreProfileHandler_Create(t *testing.T) {
	t.Run("creates and returns 201", func(t *testing.T) {
		repo := new(stubRepository)
		engine := setupRouter(t, repo)

		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		body, _ := json.Marshal(appstore.CreateProfileRequest{
			OwnerID:     uuid.New(),
			DisplayName: "Vinyl Attic",
			Slug:        "vinyl-attic",
			Locale:      "en",
			Currency:    "USD",
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stores", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("rejects a payload missing required fields", func(t *testing.T) {
		engine := setupRouter(t, new(stubRepository))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stores", bytes.NewReader([]byte(`{"slug":"x"}`)))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps a duplicate to 409", func(t *testing.T) {
		repo := new(stubRepository)
		engine := setupRouter(t, repo)

		repo.On("Create", mock.Anything, mock.Anything).Return(shared.ErrAlreadyExists)

		body, _ := json.Marshal(appstore.CreateProfileRequest{
			OwnerID:     uuid.New(),
			DisplayName: "Vinyl Attic",
			Slug:        "vinyl-attic",
			Locale:      "en",
			Currency:    "USD",
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stores", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
	})
}

func TestStoreProfileHandler_TransitionStatus(t *testing.T) {
	t.Run("maps an illegal transition to 422", func(t *testing.T) {
		repo := new(stubRepository)
		engine := setupRouter(t, repo)

		p := seedProfile(t)
		repo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		body := []byte(`{"from":"DRAFT","to":"PUBLISHED"}`)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stores/"+p.ID.String()+"/status", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidTransition, resp.Error.Code)
	})

	t.Run("maps an observed-status mismatch to 409", func(t *testing.T) {
		repo := new(stubRepository)
		engine := setupRouter(t, repo)

		p := seedProfile(t)
		require.NoError(t, p.TransitionTo(store.StatusModerating))
		repo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		body := []byte(`{"from":"DRAFT","to":"MODERATING"}`)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stores/"+p.ID.String()+"/status", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("applies a legal transition", func(t *testing.T) {
		repo := new(stubRepository)
		engine := setupRouter(t, repo)

		p := seedProfile(t)
		repo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		repo.On("UpdateWithVersion", mock.Anything, mock.Anything).Return(nil)

		body := []byte(`{"from":"DRAFT","to":"MODERATING"}`)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stores/"+p.ID.String()+"/status", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestStoreProfileHandler_List(t *testing.T) {
	t.Run("requires an owner", func(t *testing.T) {
		engine := setupRouter(t, new(stubRepository))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stores", nil)
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns paginated items with meta", func(t *testing.T) {
		repo := new(stubRepository)
		engine := setupRouter(t, repo)

		ownerID := uuid.New()
		p := seedProfile(t)
		repo.On("FindByOwner", mock.Anything, ownerID, mock.Anything).
			Return([]store.Profile{*p}, int64(1), nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stores?owner_id="+ownerID.String(), nil)
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
	})
}
