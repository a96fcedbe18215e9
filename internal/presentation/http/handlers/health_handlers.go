package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-elements/internal/application/services"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/performance"
)

// HealthHandlers reports process and cache health
type HealthHandlers struct {
	urls        *services.URLMappingService
	cache       *manager.Manager
	perfTracker *performance.Tracker
}

// NewHealthHandlers creates health handlers with injected dependencies
func NewHealthHandlers(urls *services.URLMappingService, cache *manager.Manager, perfTracker *performance.Tracker) *HealthHandlers {
	return &HealthHandlers{urls: urls, cache: cache, perfTracker: perfTracker}
}

// GetHealth returns url mapping stats, cache health and operation timings
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"urlMapping": h.urls.Stats(),
		"cache":      h.cache.Health(),
		"operations": h.perfTracker.Snapshot(),
		"uptime":     h.perfTracker.Uptime().String(),
	})
}
