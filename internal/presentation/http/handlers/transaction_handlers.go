package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-elements/internal/application/services"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/changes"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/user"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-elements/internal/presentation/http/middleware"
)

const (
	defaultRecentTransactions = 20
	maxRecentTransactions     = 200
)

// TransactionHandlers validates and applies raw change lists and the
// planned editor actions built on top of them
type TransactionHandlers struct {
	transactionService *services.TransactionService
	planningService    *services.PlanningService
	logger             *logging.ChanneledLogger
	perfTracker        *performance.Tracker
}

// NewTransactionHandlers creates transaction handlers with injected dependencies
func NewTransactionHandlers(transactionService *services.TransactionService, planningService *services.PlanningService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *TransactionHandlers {
	return &TransactionHandlers{
		transactionService: transactionService,
		planningService:    planningService,
		logger:             logger,
		perfTracker:        perfTracker,
	}
}

// ValidateTransaction checks a change list without applying it
func (h *TransactionHandlers) ValidateTransaction(c *gin.Context) {
	txn, ok := h.bindTransaction(c)
	if !ok {
		return
	}

	report, err := h.transactionService.ValidateTransaction(c.Request.Context(), txn)
	if err != nil {
		respondError(c, err)
		return
	}
	respondReport(c, report)
}

// ApplyTransaction applies a change list
func (h *TransactionHandlers) ApplyTransaction(c *gin.Context) {
	txn, ok := h.bindTransaction(c)
	if !ok {
		return
	}
	h.apply(c, txn)
}

// GetRecentTransactions lists the newest logged transactions
func (h *TransactionHandlers) GetRecentTransactions(c *gin.Context) {
	limit := defaultRecentTransactions
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentTransactions)
	}

	records, err := h.transactionService.RecentTransactions(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": records,
		"count":        len(records),
	})
}

// CreatePage plans and applies a new page
func (h *TransactionHandlers) CreatePage(c *gin.Context) {
	var req services.CreatePageRequest
	h.plan(c, &req, func(author *user.User) (*changes.Transaction, error) {
		return h.planningService.CreatePage(author, &req)
	})
}

// NewDraft adds an editable version to the element in the path
func (h *TransactionHandlers) NewDraft(c *gin.Context) {
	req := services.NewDraftRequest{ElementID: c.Param("id")}
	h.plan(c, nil, func(author *user.User) (*changes.Transaction, error) {
		return h.planningService.NewDraft(author, &req)
	})
}

// Publish publishes a version of the element in the path
func (h *TransactionHandlers) Publish(c *gin.Context) {
	var req services.PublishRequest
	h.plan(c, &req, func(author *user.User) (*changes.Transaction, error) {
		req.ElementID = c.Param("id")
		return h.planningService.Publish(author, &req)
	})
}

// Move re-parents the element in the path
func (h *TransactionHandlers) Move(c *gin.Context) {
	var req services.MoveRequest
	h.plan(c, &req, func(author *user.User) (*changes.Transaction, error) {
		req.ElementID = c.Param("id")
		return h.planningService.Move(author, &req)
	})
}

// Delete marks the newest version of the element in the path deleted
func (h *TransactionHandlers) Delete(c *gin.Context) {
	req := services.DeleteRequest{ElementID: c.Param("id")}
	h.plan(c, nil, func(author *user.User) (*changes.Transaction, error) {
		return h.planningService.Delete(author, &req)
	})
}

// UpdateField sets one content field of the element in the path
func (h *TransactionHandlers) UpdateField(c *gin.Context) {
	var req services.UpdateFieldRequest
	h.plan(c, &req, func(author *user.User) (*changes.Transaction, error) {
		req.ElementID = c.Param("id")
		return h.planningService.UpdateField(author, &req)
	})
}

// SetSlugs replaces the slugs of the element in the path
func (h *TransactionHandlers) SetSlugs(c *gin.Context) {
	var req services.SetSlugsRequest
	h.plan(c, &req, func(author *user.User) (*changes.Transaction, error) {
		req.ElementID = c.Param("id")
		return h.planningService.SetSlugs(author, &req)
	})
}

// plan binds body (when non-nil and sent), builds a transaction and applies it.
func (h *TransactionHandlers) plan(c *gin.Context, body any, build func(*user.User) (*changes.Transaction, error)) {
	author, exists := middleware.GetAuthor(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "author not found"})
		return
	}
	if body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	txn, err := build(author)
	if err != nil {
		respondError(c, err)
		return
	}
	h.apply(c, txn)
}

func (h *TransactionHandlers) apply(c *gin.Context, txn *changes.Transaction) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("apply_transaction_request", txn.ID)
	defer marker.Complete()

	report, err := h.transactionService.ApplyTransaction(c.Request.Context(), txn, nil)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(report.State == services.StateApplied)
	h.logger.Content().Info("Apply transaction request completed",
		"transactionId", report.TransactionID,
		"state", report.State,
		"authorId", txn.Author.ID,
		"duration", time.Since(start))
	respondReport(c, report)
}

func (h *TransactionHandlers) bindTransaction(c *gin.Context) (*changes.Transaction, bool) {
	author, exists := middleware.GetAuthor(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "author not found"})
		return nil, false
	}

	var txn changes.Transaction
	if err := c.ShouldBindJSON(&txn); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return nil, false
	}
	txn.Author = author
	return &txn, true
}
