package handlers

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-elements/internal/application/services"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-elements/internal/presentation/http/middleware"
)

// FileHandlers accepts multipart uploads
type FileHandlers struct {
	fileService *services.FileService
	maxSize     int64
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewFileHandlers creates file handlers with injected dependencies
func NewFileHandlers(fileService *services.FileService, maxSize int64, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *FileHandlers {
	return &FileHandlers{
		fileService: fileService,
		maxSize:     maxSize,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// UploadFile stores the "file" form field and records its metadata
func (h *FileHandlers) UploadFile(c *gin.Context) {
	author, exists := middleware.GetAuthor(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "author not found"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required", "details": err.Error()})
		return
	}
	if h.maxSize > 0 && header.Size > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large", "maxSize": h.maxSize})
		return
	}

	marker := h.perfTracker.StartOperation("upload_file_request", header.Filename)
	defer marker.Complete()

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload", "details": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload", "details": err.Error()})
		return
	}

	result, err := h.fileService.Upload(c.Request.Context(), author, filepath.Base(header.Filename), data)
	if err != nil {
		marker.SetError(err)
		h.logger.Content().Error("File upload failed", "name", header.Filename, "error", err.Error())
		respondError(c, err)
		return
	}
	if result.State != services.StateApplied {
		respondReport(c, result.TransactionReport)
		return
	}

	marker.SetSuccess(true)
	h.logger.Content().Info("File uploaded", "fileId", result.FileID, "path", result.Path, "size", len(data))
	c.JSON(http.StatusCreated, result)
}
