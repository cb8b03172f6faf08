package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/metrics"
)

func TestMetrics_ObserveDiscovery(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	m.ObserveDiscovery(domain.DiscoveryResult{Found: 4, Internal: 1, Enqueued: 2, Failed: 1})

	assert.InDelta(t, 2, testutil.ToFloat64(m.DiscoveryURLs.WithLabelValues("enqueued")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DiscoveryURLs.WithLabelValues("failed")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.DiscoveryURLs.WithLabelValues("duplicate")), 0)
}

func TestMetrics_ObserveProbesAndJobs(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	m.ObserveProbes(domain.ProbeReport{Applied: 3, NewlyDead: 1})
	m.ObserveJob("process-queue", nil, time.Second)
	m.ObserveJob("process-queue", errors.New("boom"), time.Second)

	assert.InDelta(t, 3, testutil.ToFloat64(m.ProbeResults.WithLabelValues("applied")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ProbeResults.WithLabelValues("newly_dead")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.JobRuns.WithLabelValues("process-queue", "error")), 0)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	m.ObserveDiscovery(domain.DiscoveryResult{Enqueued: 1})
	m.ObserveDrop()
	m.ObserveQueue(domain.QueueReport{Created: 1})
	m.ObserveProbes(domain.ProbeReport{Applied: 1})
	m.ObserveJob("x", nil, time.Millisecond)
}

func TestMetrics_GinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := metrics.New(prometheus.NewRegistry())
	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/api/v1/summary", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil))

	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/v1/summary", "GET", "200")), 0)
}
