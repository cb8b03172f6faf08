// Package metrics exposes the link-health Prometheus metrics. All recording
// methods are safe on a nil *Metrics so tests and CLI commands can skip them.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

// Namespace prefixes every metric name.
const Namespace = "link_health"

// Metrics holds the registered collectors.
type Metrics struct {
	DiscoveryURLs      *prometheus.CounterVec
	DispatcherDropped  prometheus.Counter
	QueueEntries       *prometheus.CounterVec
	ProbeResults       *prometheus.CounterVec
	JobRuns            *prometheus.CounterVec
	JobDuration        *prometheus.HistogramVec
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
}

// New registers all collectors with reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		DiscoveryURLs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "discovery",
			Name:      "urls_total",
			Help:      "URLs seen in content changes, by outcome",
		}, []string{"outcome"}),
		DispatcherDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "discovery",
			Name:      "dropped_events_total",
			Help:      "Content changes dropped because the dispatch buffer was full",
		}),
		QueueEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "queue",
			Name:      "entries_processed_total",
			Help:      "Queue entries drained into the archive, by outcome",
		}, []string{"outcome"}),
		ProbeResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "archive",
			Name:      "probe_results_total",
			Help:      "Probe results applied to the archive, by outcome",
		}, []string{"outcome"}),
		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs, by job and status",
		}, []string{"job", "status"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveDiscovery records the per-URL outcomes of one content change.
func (m *Metrics) ObserveDiscovery(r domain.DiscoveryResult) {
	if m == nil {
		return
	}
	m.DiscoveryURLs.WithLabelValues("internal").Add(float64(r.Internal))
	m.DiscoveryURLs.WithLabelValues("enqueued").Add(float64(r.Enqueued))
	m.DiscoveryURLs.WithLabelValues("duplicate").Add(float64(r.Duplicates))
	m.DiscoveryURLs.WithLabelValues("failed").Add(float64(r.Failed))
	m.DiscoveryURLs.WithLabelValues("abandoned").Add(float64(r.Abandoned))
}

// ObserveDrop counts one dropped content change.
func (m *Metrics) ObserveDrop() {
	if m == nil {
		return
	}
	m.DispatcherDropped.Inc()
}

// ObserveQueue records a queue drain.
func (m *Metrics) ObserveQueue(r domain.QueueReport) {
	if m == nil {
		return
	}
	m.QueueEntries.WithLabelValues("created").Add(float64(r.Created))
	m.QueueEntries.WithLabelValues("merged").Add(float64(r.Merged))
	m.QueueEntries.WithLabelValues("recheck").Add(float64(r.Rechecks))
	m.QueueEntries.WithLabelValues("discarded").Add(float64(r.Discarded))
	m.QueueEntries.WithLabelValues("failed").Add(float64(r.Failed))
}

// ObserveProbes records a batch of applied probe results.
func (m *Metrics) ObserveProbes(r domain.ProbeReport) {
	if m == nil {
		return
	}
	m.ProbeResults.WithLabelValues("applied").Add(float64(r.Applied))
	m.ProbeResults.WithLabelValues("ignored").Add(float64(r.Ignored))
	m.ProbeResults.WithLabelValues("failed").Add(float64(r.Failed))
	m.ProbeResults.WithLabelValues("newly_dead").Add(float64(r.NewlyDead))
	m.ProbeResults.WithLabelValues("recovered").Add(float64(r.Recovered))
}

// ObserveJob records one scheduled job run.
func (m *Metrics) ObserveJob(job string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// GinMiddleware counts requests and their latency by matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestSeconds.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
