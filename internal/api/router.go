// Package api exposes the link-health HTTP endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/service"
)

// DashboardReader serves the aggregated views.
type DashboardReader interface {
	Dashboard(ctx context.Context) (*domain.Dashboard, error)
	Summary(ctx context.Context) (domain.Summary, error)
	Domains(ctx context.Context, limit int) ([]domain.DomainHealth, error)
	DeadLinks(ctx context.Context, limit int) ([]domain.DeadLink, error)
}

// ArchiveWriter is the checker-facing side of the archive.
type ArchiveWriter interface {
	ListDue(ctx context.Context, limit int) ([]domain.LinkRecord, error)
	RecordProbes(ctx context.Context, probes []domain.ProbeResult) domain.ProbeReport
	SetWayback(ctx context.Context, rawURL, waybackURL string, capturedAt time.Time) error
	StoreSnapshot(ctx context.Context, rawURL string, body []byte, contentType string) (string, error)
	MarkRemediated(ctx context.Context, rawURL, by string) error
	Link(ctx context.Context, rawURL string) (*domain.LinkRecord, error)
}

// Router holds the handler dependencies.
type Router struct {
	content          service.ContentHandler
	dashboard        DashboardReader
	archive          ArchiveWriter
	gatherer         prometheus.Gatherer
	maxSnapshotBytes int64
	log              logger.Logger
}

// NewRouter creates a router. gatherer may be nil to skip /metrics.
func NewRouter(
	content service.ContentHandler,
	dashboard DashboardReader,
	archive ArchiveWriter,
	gatherer prometheus.Gatherer,
	maxSnapshotBytes int64,
	log logger.Logger,
) *Router {
	if maxSnapshotBytes <= 0 {
		maxSnapshotBytes = defaultMaxSnapshotBytes
	}
	return &Router{
		content:          content,
		dashboard:        dashboard,
		archive:          archive,
		gatherer:         gatherer,
		maxSnapshotBytes: maxSnapshotBytes,
		log:              log,
	}
}

// SetupRoutes registers all API routes. Health routes are registered by the
// infrastructure gin builder.
func (r *Router) SetupRoutes(router *gin.Engine) {
	if r.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")

	v1.POST("/content-events", r.postContentEvent)

	v1.GET("/dashboard", r.getDashboard)
	v1.GET("/summary", r.getSummary)
	v1.GET("/domains", r.getDomains)
	v1.GET("/dead-links", r.getDeadLinks)

	archive := v1.Group("/archive")
	archive.GET("/due", r.getDue)
	archive.GET("/links", r.getLink)
	archive.POST("/probes", r.postProbes)
	archive.PUT("/wayback", r.putWayback)
	archive.POST("/snapshots", r.postSnapshot)
	archive.POST("/remediations", r.postRemediation)
}

func (r *Router) postContentEvent(c *gin.Context) {
	var change domain.ContentChange
	if err := c.ShouldBindJSON(&change); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content event: " + err.Error()})
		return
	}

	result := r.content.HandleContentChange(c.Request.Context(), change)
	c.JSON(http.StatusAccepted, result)
}
