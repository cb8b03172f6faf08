package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/snapshot"
)

// parseLimit reads an optional positive ?limit= query parameter. Zero means
// the caller's default.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return limit, true
}

// requestLog prefers the logger the request-id middleware attached.
func (r *Router) requestLog(c *gin.Context) logger.Logger {
	if _, ok := c.Get("request_id"); ok {
		return logger.FromContext(c.Request.Context())
	}
	return r.log
}

// handleDashboardError maps aggregator failures to the two degraded states.
func (r *Router) handleDashboardError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrSchemaMissing) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"state": domain.DashboardNotInitialized})
		return
	}
	r.requestLog(c).Warn("Dashboard query failed", logger.String("path", c.FullPath()), logger.Error(err))
	c.JSON(http.StatusServiceUnavailable, gin.H{"state": domain.DashboardUnavailable})
}

// handleArchiveError handles common archive errors
func (r *Router) handleArchiveError(c *gin.Context, err error, operation string) {
	switch {
	case errors.Is(err, domain.ErrInvalidURL), errors.Is(err, snapshot.ErrEmptySnapshot):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
	case errors.Is(err, domain.ErrNotDead):
		c.JSON(http.StatusConflict, gin.H{"error": "Link is not dead"})
	case errors.Is(err, domain.ErrSnapshotsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Snapshot storage is not configured"})
	default:
		r.requestLog(c).Error("Archive operation failed", logger.String("operation", operation), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + operation})
	}
}
