// Package handlers provides HTTP handlers for element, URL and transaction endpoints
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/AtRiskMedia/tractstack-elements/internal/application/services"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/media"
)

// statusFor maps service errors onto HTTP status codes. Corruption and
// storage failures fall through to 500.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, element.ErrInvalidID), errors.Is(err, element.ErrBadPath), errors.Is(err, media.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// respondReport writes a transaction report: 200 when it succeeded, 400 when
// it was rejected, 500 when persistence failed after apply.
func respondReport(c *gin.Context, report *services.TransactionReport) {
	switch report.State {
	case services.StateApplied, services.StateValidated:
		c.JSON(http.StatusOK, report)
	case services.StateRejected:
		c.JSON(http.StatusBadRequest, report)
	default:
		c.JSON(http.StatusInternalServerError, report)
	}
}
