package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/stores/internal/domain/pricing"
	"github.com/storefront/stores/internal/interfaces/http/dto"
)

// DatabasePinger reports database reachability
type DatabasePinger interface {
	Ping() error
}

// CachePinger reports cache-backend reachability
type CachePinger interface {
	Ping(ctx context.Context) error
}

// RateSource exposes the active exchange-rate snapshot
type RateSource interface {
	Current() *pricing.RateSnapshot
}

// SystemHandler handles health and system endpoints
type SystemHandler struct {
	BaseHandler
	db        DatabasePinger
	cache     CachePinger
	rates     RateSource
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db DatabasePinger, cache CachePinger, rates RateSource) *SystemHandler {
	return &SystemHandler{
		db:        db,
		cache:     cache,
		rates:     rates,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/health", h.Health)
		system.GET("/info", h.Info)
	}
}

// ComponentHealth reports the state of one dependency
type ComponentHealth struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse reports overall service health. The cache and the rate
// snapshot are soft dependencies: reads degrade without them, so their
// failure marks the service degraded, not down.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

// Health reports the health of the service and its dependencies
func (h *SystemHandler) Health(c *gin.Context) {
	components := make(map[string]ComponentHealth, 3)
	status := "ok"
	httpStatus := http.StatusOK

	if err := h.db.Ping(); err != nil {
		components["database"] = ComponentHealth{Status: "down", Detail: err.Error()}
		status = "down"
		httpStatus = http.StatusServiceUnavailable
	} else {
		components["database"] = ComponentHealth{Status: "ok"}
	}

	if err := h.cache.Ping(c.Request.Context()); err != nil {
		components["cache"] = ComponentHealth{Status: "down", Detail: err.Error()}
		if status == "ok" {
			status = "degraded"
		}
	} else {
		components["cache"] = ComponentHealth{Status: "ok"}
	}

	if snapshot := h.rates.Current(); snapshot == nil {
		components["rates"] = ComponentHealth{Status: "pending", Detail: "no snapshot yet"}
		if status == "ok" {
			status = "degraded"
		}
	} else {
		components["rates"] = ComponentHealth{
			Status: "ok",
			Detail: fmt.Sprintf("generation %d, fetched %s", snapshot.Generation, snapshot.FetchedAt.Format(time.RFC3339)),
		}
	}

	c.JSON(httpStatus, dto.NewSuccessResponse(HealthResponse{
		Status:     status,
		Components: components,
	}))
}

// InfoResponse represents the system information response
type InfoResponse struct {
	Name      string `json:"name"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Info returns basic service information
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, InfoResponse{
		Name:      "Stores Backend API",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
