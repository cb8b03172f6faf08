package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getDashboard returns the full aggregated view
// GET /api/v1/dashboard
func (r *Router) getDashboard(c *gin.Context) {
	dash, err := r.dashboard.Dashboard(c.Request.Context())
	if err != nil {
		r.handleDashboardError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// GET /api/v1/summary
func (r *Router) getSummary(c *gin.Context) {
	summary, err := r.dashboard.Summary(c.Request.Context())
	if err != nil {
		r.handleDashboardError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GET /api/v1/domains?limit=
func (r *Router) getDomains(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	domains, err := r.dashboard.Domains(c.Request.Context(), limit)
	if err != nil {
		r.handleDashboardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains, "count": len(domains)})
}

// GET /api/v1/dead-links?limit=
func (r *Router) getDeadLinks(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	links, err := r.dashboard.DeadLinks(c.Request.Context(), limit)
	if err != nil {
		r.handleDashboardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dead_links": links, "count": len(links)})
}
