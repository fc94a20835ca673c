package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appstore "github.com/storefront/stores/internal/application/store"
	"github.com/storefront/stores/internal/domain/shared"
	"github.com/storefront/stores/internal/interfaces/http/dto"
	"github.com/storefront/stores/internal/interfaces/http/middleware"
)

// StoreProfileHandler handles store profile API endpoints
type StoreProfileHandler struct {
	BaseHandler
	service *appstore.ProfileService
}

// NewStoreProfileHandler creates a new StoreProfileHandler
func NewStoreProfileHandler(service *appstore.ProfileService) *StoreProfileHandler {
	return &StoreProfileHandler{service: service}
}

// RegisterRoutes registers store profile routes
func (h *StoreProfileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stores := rg.Group("/stores")
	{
		stores.POST("", h.Create)
		stores.GET("", h.List)
		stores.GET("/:id", h.Get)
		stores.PATCH("/:id", h.Update)
		stores.POST("/:id/status", h.TransitionStatus)
		stores.GET("/slug/:slug", h.GetBySlug)
	}
}

// getQuery holds the optional rendering parameters of a profile read
type getQuery struct {
	Locale          string `form:"locale"`
	DisplayCurrency string `form:"display_currency" binding:"omitempty,len=3"`
}

// Get returns a single store profile
func (h *StoreProfileHandler) Get(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}
	var query getQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	id, _ := uuid.Parse(uri.ID)
	resp, err := h.service.GetProfile(c.Request.Context(), id, query.Locale, query.DisplayCurrency)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetBySlug returns a store profile by its slug
func (h *StoreProfileHandler) GetBySlug(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		h.BadRequest(c, "Slug is required")
		return
	}

	resp, err := h.service.GetProfileBySlug(c.Request.Context(), slug)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// listQuery scopes a profile listing to an owner
type listQuery struct {
	OwnerID string `form:"owner_id" binding:"required,uuid"`
	dto.ListRequest
}

// List returns the profiles owned by the given owner, paginated
func (h *StoreProfileHandler) List(c *gin.Context) {
	var query listQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	ownerID, _ := uuid.Parse(query.OwnerID)
	filter := shared.Filter{
		Page:     query.Page,
		PageSize: query.PageSize,
		OrderBy:  query.OrderBy,
		OrderDir: query.OrderDir,
	}

	resp, err := h.service.ListProfiles(c.Request.Context(), ownerID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp.Items, resp.Total, resp.Page, resp.PageSize)
}

// Create opens a new store profile in DRAFT status
func (h *StoreProfileHandler) Create(c *gin.Context) {
	var req appstore.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.CreateProfile(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update applies a partial update to a store profile
func (h *StoreProfileHandler) Update(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}
	var req appstore.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	id, _ := uuid.Parse(uri.ID)
	resp, err := h.service.UpdateProfile(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// TransitionStatus moves a profile through the moderation flow
func (h *StoreProfileHandler) TransitionStatus(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}
	var req appstore.TransitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	id, _ := uuid.Parse(uri.ID)
	resp, err := h.service.TransitionStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}
