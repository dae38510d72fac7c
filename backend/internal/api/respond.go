package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-network/backend/internal/constants"
	apperrors "social-network/backend/pkg/errors"
)

// writeError maps err onto an HTTP status: missing entities are 404 and
// rejected input 400 (409 when it clashes with existing state). Storage faults
// and configuration errors, an unregistered edge type included, are 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		status = http.StatusBadRequest
		if apperrors.IsConflict(err) {
			status = http.StatusConflict
		}
	case apperrors.ErrorTypeContext:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// writeDecision answers a business decision: true is 200, false is 403.
func writeDecision(c *gin.Context, ok bool, body gin.H) {
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}
	c.JSON(http.StatusOK, body)
}

// page reads offset and limit query parameters. The limit defaults to
// DefaultPageSize and is capped at MaxPageSize.
func page(c *gin.Context) (offset, limit int, ok bool) {
	offset, limit = 0, constants.DefaultPageSize
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return 0, 0, false
		}
		offset = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return 0, 0, false
		}
		limit = n
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}
	return offset, limit, true
}
