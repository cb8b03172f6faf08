package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

const defaultMaxSnapshotBytes = 10 << 20

// Status codes in [200, 400) count as alive when the checker omits the flag.
const (
	aliveStatusMin = 200
	aliveStatusMax = 399
)

type probeRequest struct {
	URL        string     `binding:"required" json:"url"`
	HTTPStatus *int       `json:"http_status"`
	Alive      *bool      `json:"alive"`
	CheckedAt  *time.Time `json:"checked_at"`
}

type probesRequest struct {
	Results []probeRequest `binding:"required,dive" json:"results"`
}

type waybackRequest struct {
	URL        string `binding:"required" json:"url"`
	WaybackURL string `binding:"required" json:"wayback_url"`
	Timestamp  string `json:"timestamp"`
}

type remediationRequest struct {
	URL          string `binding:"required" json:"url"`
	RemediatedBy string `binding:"required" json:"remediated_by"`
}

func (p probeRequest) toResult() domain.ProbeResult {
	result := domain.ProbeResult{URL: p.URL, HTTPStatus: p.HTTPStatus}
	switch {
	case p.Alive != nil:
		result.Alive = *p.Alive
	case p.HTTPStatus != nil:
		result.Alive = *p.HTTPStatus >= aliveStatusMin && *p.HTTPStatus <= aliveStatusMax
	}
	if p.CheckedAt != nil {
		result.CheckedAt = p.CheckedAt.UTC()
	}
	return result
}

// getDue returns the checker's next work list
// GET /api/v1/archive/due?limit=
func (r *Router) getDue(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	links, err := r.archive.ListDue(c.Request.Context(), limit)
	if err != nil {
		r.handleArchiveError(c, err, "list due links")
		return
	}
	if links == nil {
		links = []domain.LinkRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"links": links, "count": len(links)})
}

// GET /api/v1/archive/links?url=
func (r *Router) getLink(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	link, err := r.archive.Link(c.Request.Context(), rawURL)
	if err != nil {
		r.handleArchiveError(c, err, "get link")
		return
	}
	c.JSON(http.StatusOK, link)
}

// postProbes applies a batch of checker results
// POST /api/v1/archive/probes
func (r *Router) postProbes(c *gin.Context) {
	var req probesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid probe results: " + err.Error()})
		return
	}

	probes := make([]domain.ProbeResult, 0, len(req.Results))
	for _, p := range req.Results {
		probes = append(probes, p.toResult())
	}

	c.JSON(http.StatusOK, r.archive.RecordProbes(c.Request.Context(), probes))
}

// PUT /api/v1/archive/wayback
func (r *Router) putWayback(c *gin.Context) {
	var req waybackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wayback update: " + err.Error()})
		return
	}

	var capturedAt time.Time
	if req.Timestamp != "" {
		parsed, err := domain.ParseWaybackTimestamp(req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		capturedAt = parsed
	}

	if err := r.archive.SetWayback(c.Request.Context(), req.URL, req.WaybackURL, capturedAt); err != nil {
		r.handleArchiveError(c, err, "record wayback copy")
		return
	}
	c.Status(http.StatusNoContent)
}

// postSnapshot stores the request body as a captured copy
// POST /api/v1/archive/snapshots?url=
func (r *Router) postSnapshot(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, r.maxSnapshotBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Snapshot exceeds size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read snapshot body"})
		return
	}

	key, err := r.archive.StoreSnapshot(c.Request.Context(), rawURL, body, c.ContentType())
	if err != nil {
		r.handleArchiveError(c, err, "store snapshot")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

// POST /api/v1/archive/remediations
func (r *Router) postRemediation(c *gin.Context) {
	var req remediationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid remediation: " + err.Error()})
		return
	}

	if err := r.archive.MarkRemediated(c.Request.Context(), req.URL, req.RemediatedBy); err != nil {
		r.handleArchiveError(c, err, "mark remediation")
		return
	}
	c.Status(http.StatusNoContent)
}
