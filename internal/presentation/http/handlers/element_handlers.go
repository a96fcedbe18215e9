package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-elements/internal/application/services"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/performance"
)

// CheckSlugsRequest is the body of a slug pre-check.
type CheckSlugsRequest struct {
	ParentID  string                  `json:"parentId"`
	ElementID string                  `json:"elementId"`
	Slugs     map[string]element.Slug `json:"slugs" binding:"required"`
}

// ElementHandlers contains the public read handlers
type ElementHandlers struct {
	elementService *services.ElementService
	urlService     *services.URLMappingService
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

// NewElementHandlers creates element handlers with injected dependencies
func NewElementHandlers(elementService *services.ElementService, urlService *services.URLMappingService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ElementHandlers {
	return &ElementHandlers{
		elementService: elementService,
		urlService:     urlService,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

// ResolveURL returns the element behind ?path=
func (h *ElementHandlers) ResolveURL(c *gin.Context) {
	start := time.Now()
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	marker := h.perfTracker.StartOperation("resolve_url_request", path)
	defer marker.Complete()

	page, err := h.elementService.Resolve(path)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	h.logger.Content().Debug("Resolved url", "path", path, "elementId", page.Element.ID, "redirect", page.Redirect, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, page)
}

// GetElement returns an element by id
func (h *ElementHandlers) GetElement(c *gin.Context) {
	id := c.Param("id")
	marker := h.perfTracker.StartOperation("get_element_request", id)
	defer marker.Complete()

	e, err := h.elementService.GetByID(id)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, e)
}

// GetElementURLs returns the url pointers that resolve to an element
func (h *ElementHandlers) GetElementURLs(c *gin.Context) {
	id := c.Param("id")
	if err := element.CheckID(id); err != nil {
		respondError(c, err)
		return
	}

	pointers, err := h.urlService.UrlsFor(id)
	if err != nil {
		h.logger.URLMap().Error("Failed to list urls", "elementId", id, "error", err.Error())
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"elementId": id,
		"urls":      pointers,
		"count":     len(pointers),
	})
}

// CheckSlugs reports, per proposed slug, whether it could be saved
func (h *ElementHandlers) CheckSlugs(c *gin.Context) {
	var req CheckSlugsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	results, err := h.urlService.CheckSlugs(req.ParentID, req.Slugs, req.ElementID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
