package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-elements/internal/application/services"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-elements/internal/presentation/http/middleware"
)

// AdminHandlers covers maintenance endpoints and the change feed
type AdminHandlers struct {
	urlService       *services.URLMappingService
	integrityService *services.IntegrityService
	broadcaster      *messaging.ChangeBroadcaster
	logger           *logging.ChanneledLogger
	perfTracker      *performance.Tracker
}

// NewAdminHandlers creates admin handlers with injected dependencies
func NewAdminHandlers(urlService *services.URLMappingService, integrityService *services.IntegrityService, broadcaster *messaging.ChangeBroadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AdminHandlers {
	return &AdminHandlers{
		urlService:       urlService,
		integrityService: integrityService,
		broadcaster:      broadcaster,
		logger:           logger,
		perfTracker:      perfTracker,
	}
}

// RebuildURLMapping runs a full rebuild and persists both cache layers
func (h *AdminHandlers) RebuildURLMapping(c *gin.Context) {
	start := time.Now()
	author, exists := middleware.GetAuthor(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "author not found"})
		return
	}
	marker := h.perfTracker.StartOperation("rebuild_url_mapping_request", author.ID)
	defer marker.Complete()

	if err := h.urlService.Rebuild(); err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	stats := h.urlService.Stats()
	h.logger.URLMap().Info("Url mapping rebuilt on request", "authorId", author.ID, "pointers", stats.Pointers, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, stats)
}

// GetIntegrity reports orphans, dangling links and unreachable elements
func (h *AdminHandlers) GetIntegrity(c *gin.Context) {
	marker := h.perfTracker.StartOperation("integrity_analysis_request", c.ClientIP())
	defer marker.Complete()

	report, etag, err := h.integrityService.Analyze()
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	marker.SetSuccess(true)

	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ChangeFeed upgrades to a websocket that streams applied transactions
func (h *AdminHandlers) ChangeFeed(c *gin.Context) {
	if err := h.broadcaster.ServeWS(c.Writer, c.Request); err != nil {
		h.logger.System().Warn("Change feed upgrade failed", "remote", c.ClientIP(), "error", err.Error())
	}
}
