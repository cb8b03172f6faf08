package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/api"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/metrics"
	"github.com/jonesrussell/north-cloud/link-health/internal/service"
)

type stubContent struct {
	got []domain.ContentChange
}

func (s *stubContent) HandleContentChange(_ context.Context, c domain.ContentChange) domain.DiscoveryResult {
	s.got = append(s.got, c)
	return domain.DiscoveryResult{Found: 2, Enqueued: 1, Internal: 1}
}

type stubDashboard struct {
	err       error
	dash      domain.Dashboard
	lastLimit int
}

func (s *stubDashboard) Dashboard(context.Context) (*domain.Dashboard, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &s.dash, nil
}

func (s *stubDashboard) Summary(context.Context) (domain.Summary, error) {
	return s.dash.Summary, s.err
}

func (s *stubDashboard) Domains(_ context.Context, limit int) ([]domain.DomainHealth, error) {
	s.lastLimit = limit
	return s.dash.Domains, s.err
}

func (s *stubDashboard) DeadLinks(_ context.Context, limit int) ([]domain.DeadLink, error) {
	s.lastLimit = limit
	return s.dash.DeadLinks, s.err
}

type stubArchive struct {
	probes      []domain.ProbeResult
	err         error
	waybackAt   time.Time
	snapshot    []byte
	remediators []string
}

func (s *stubArchive) ListDue(context.Context, int) ([]domain.LinkRecord, error) {
	return nil, s.err
}

func (s *stubArchive) RecordProbes(_ context.Context, probes []domain.ProbeResult) domain.ProbeReport {
	s.probes = probes
	return domain.ProbeReport{Applied: len(probes)}
}

func (s *stubArchive) SetWayback(_ context.Context, _, _ string, capturedAt time.Time) error {
	s.waybackAt = capturedAt
	return s.err
}

func (s *stubArchive) StoreSnapshot(_ context.Context, _ string, body []byte, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.snapshot = body
	return "snapshots/a.org/abc/20260101000000.warc.gz", nil
}

func (s *stubArchive) MarkRemediated(_ context.Context, _, by string) error {
	if s.err != nil {
		return s.err
	}
	s.remediators = append(s.remediators, by)
	return nil
}

func (s *stubArchive) Link(context.Context, string) (*domain.LinkRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.LinkRecord{URL: "http://a.org/"}, nil
}

func setupRouter(t *testing.T, content *stubContent, dash *stubDashboard, archive *stubArchive) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	engine := gin.New()
	engine.Use(m.GinMiddleware())
	api.NewRouter(content, dash, archive, reg, 64, logger.NewNop()).SetupRoutes(engine)
	return engine
}

func do(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), into); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

func TestContentEvents_Accepted(t *testing.T) {
	content := &stubContent{}
	r := setupRouter(t, content, &stubDashboard{}, &stubArchive{})

	w := do(t, r, http.MethodPost, "/api/v1/content-events", `{"text":"http://a.org/","source_id":"page-1"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}

	var result domain.DiscoveryResult
	decode(t, w, &result)
	if result.Enqueued != 1 || result.Internal != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(content.got) != 1 || content.got[0].SourceID != "page-1" {
		t.Errorf("handler not called with event: %+v", content.got)
	}
}

type countingEnqueuer struct {
	calls int
}

func (q *countingEnqueuer) Enqueue(context.Context, *domain.QueueEntry) (bool, error) {
	q.calls++
	return true, nil
}

func TestContentEvents_EmptyTextAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	queue := &countingEnqueuer{}
	discovery := service.NewDiscoveryService(queue, nil, "wiki.example.org", time.Second, logger.NewNop(), nil)

	engine := gin.New()
	api.NewRouter(discovery, &stubDashboard{}, &stubArchive{}, nil, 64, logger.NewNop()).SetupRoutes(engine)

	w := do(t, engine, http.MethodPost, "/api/v1/content-events", `{"text":"","source_id":"page-1"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for a blanked page, got %d: %s", w.Code, w.Body.String())
	}

	var result domain.DiscoveryResult
	decode(t, w, &result)
	if result.Found != 0 || result.Enqueued != 0 {
		t.Errorf("expected an empty result, got %+v", result)
	}
	if queue.calls != 0 {
		t.Errorf("expected no enqueues, got %d", queue.calls)
	}
}

func TestContentEvents_MissingSourceID(t *testing.T) {
	content := &stubContent{}
	r := setupRouter(t, content, &stubDashboard{}, &stubArchive{})

	w := do(t, r, http.MethodPost, "/api/v1/content-events", `{"text":"http://a.org/"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(content.got) != 0 {
		t.Error("handler must not run for a malformed event")
	}
}

func TestDashboard_States(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantState domain.DashboardState
	}{
		{"ready", nil, http.StatusOK, domain.DashboardReady},
		{"not initialized", domain.ErrSchemaMissing, http.StatusServiceUnavailable, domain.DashboardNotInitialized},
		{"wrapped missing schema", errors.Join(errors.New("x"), domain.ErrSchemaMissing), http.StatusServiceUnavailable, domain.DashboardNotInitialized},
		{"unavailable", errors.New("connection refused"), http.StatusServiceUnavailable, domain.DashboardUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dash := &stubDashboard{err: tt.err, dash: domain.Dashboard{State: domain.DashboardReady}}
			r := setupRouter(t, &stubContent{}, dash, &stubArchive{})

			w := do(t, r, http.MethodGet, "/api/v1/dashboard", "")
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			var body struct {
				State domain.DashboardState `json:"state"`
			}
			decode(t, w, &body)
			if body.State != tt.wantState {
				t.Errorf("expected state %q, got %q", tt.wantState, body.State)
			}
		})
	}
}

func TestDomains_Limit(t *testing.T) {
	dash := &stubDashboard{}
	r := setupRouter(t, &stubContent{}, dash, &stubArchive{})

	if w := do(t, r, http.MethodGet, "/api/v1/domains?limit=7", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if dash.lastLimit != 7 {
		t.Errorf("expected limit 7, got %d", dash.lastLimit)
	}
	if w := do(t, r, http.MethodGet, "/api/v1/dead-links?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestProbes_AliveDerivedFromStatus(t *testing.T) {
	archive := &stubArchive{}
	r := setupRouter(t, &stubContent{}, &stubDashboard{}, archive)

	body := `{"results":[
		{"url":"http://a.org/","http_status":301},
		{"url":"http://b.org/","http_status":404},
		{"url":"http://c.org/","http_status":500,"alive":true},
		{"url":"http://d.org/","checked_at":"2026-01-02T03:04:05Z"},
		{"url":"http://e.org/","http_status":200,"alive":false}
	]}`
	w := do(t, r, http.MethodPost, "/api/v1/archive/probes", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	want := []bool{true, false, true, false, false}
	if len(archive.probes) != len(want) {
		t.Fatalf("expected %d probes, got %d", len(want), len(archive.probes))
	}
	for i, alive := range want {
		if archive.probes[i].Alive != alive {
			t.Errorf("probe %d: expected alive=%v", i, alive)
		}
	}
	if !archive.probes[3].CheckedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("checked_at not passed through: %v", archive.probes[3].CheckedAt)
	}
}

func TestProbes_MissingURL(t *testing.T) {
	r := setupRouter(t, &stubContent{}, &stubDashboard{}, &stubArchive{})

	w := do(t, r, http.MethodPost, "/api/v1/archive/probes", `{"results":[{"http_status":200}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWayback(t *testing.T) {
	archive := &stubArchive{}
	r := setupRouter(t, &stubContent{}, &stubDashboard{}, archive)

	w := do(t, r, http.MethodPut, "/api/v1/archive/wayback",
		`{"url":"http://a.org/","wayback_url":"https://web.archive.org/web/20200102030405/http://a.org/","timestamp":"20200102030405"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if !archive.waybackAt.Equal(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("unexpected capture time %v", archive.waybackAt)
	}

	w = do(t, r, http.MethodPut, "/api/v1/archive/wayback", `{"url":"http://a.org/","wayback_url":"x","timestamp":"2020"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for short timestamp, got %d", w.Code)
	}

	archive.err = domain.ErrNotFound
	w = do(t, r, http.MethodPut, "/api/v1/archive/wayback", `{"url":"http://x.org/","wayback_url":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSnapshots(t *testing.T) {
	archive := &stubArchive{}
	r := setupRouter(t, &stubContent{}, &stubDashboard{}, archive)

	w := do(t, r, http.MethodPost, "/api/v1/archive/snapshots?url=http://a.org/", "<html></html>")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if string(archive.snapshot) != "<html></html>" {
		t.Errorf("unexpected body %q", archive.snapshot)
	}

	w = do(t, r, http.MethodPost, "/api/v1/archive/snapshots?url=http://a.org/", strings.Repeat("x", 65))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}

	if w := do(t, r, http.MethodPost, "/api/v1/archive/snapshots", "x"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without url, got %d", w.Code)
	}

	archive.err = domain.ErrSnapshotsDisabled
	w = do(t, r, http.MethodPost, "/api/v1/archive/snapshots?url=http://a.org/", "x")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestRemediations(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"ok", nil, http.StatusNoContent},
		{"unknown", domain.ErrNotFound, http.StatusNotFound},
		{"not dead", domain.ErrNotDead, http.StatusConflict},
		{"storage", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(t, &stubContent{}, &stubDashboard{}, &stubArchive{err: tt.err})
			w := do(t, r, http.MethodPost, "/api/v1/archive/remediations", `{"url":"http://a.org/","remediated_by":"editor"}`)
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupRouter(t, &stubContent{}, &stubDashboard{}, &stubArchive{})

	do(t, r, http.MethodGet, "/api/v1/summary", "")
	w := do(t, r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "link_health_http_requests_total") {
		t.Error("expected http request counter in /metrics output")
	}
}
