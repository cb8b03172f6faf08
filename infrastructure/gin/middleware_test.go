package gin_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ginpkg "github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/link-health/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
)

func newTestRouter(t *testing.T) *ginpkg.Engine {
	t.Helper()

	ginpkg.SetMode(ginpkg.TestMode)
	log := logger.NewNop()

	router := ginpkg.New()
	router.Use(infragin.RecoveryMiddleware(log), infragin.RequestIDLoggerMiddleware(log))
	router.GET("/ok", func(c *ginpkg.Context) {
		if logger.FromContext(c.Request.Context()) == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, "ok")
	})
	router.GET("/panic", func(*ginpkg.Context) { panic("boom") })

	return router
}

func TestRequestIDLoggerMiddleware_GeneratesID(t *testing.T) {
	router := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", http.NoBody))

	const uuidHexLen = 32
	if got := w.Header().Get("X-Request-ID"); len(got) != uuidHexLen {
		t.Errorf("X-Request-ID = %q, want %d hex chars", got, uuidHexLen)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequestIDLoggerMiddleware_KeepsInboundID(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/ok", http.NoBody)
	req.Header.Set("X-Request-ID", "upstream-42")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "upstream-42" {
		t.Errorf("X-Request-ID = %q, want %q", got, "upstream-42")
	}
}

func TestRecoveryMiddleware_Returns500(t *testing.T) {
	router := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestServerBuilder_HealthReflectsChecks(t *testing.T) {
	server := infragin.NewServerBuilder("link-health", 8097).
		WithLogger(logger.NewNop()).
		WithDatabaseHealthCheck(func() error { return nil }).
		WithRedisHealthCheck(func() error { return errors.New("connection refused") }).
		Build()

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (redis is non-critical)", w.Code)
	}

	var resp infragin.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != infragin.HealthStatusDegraded {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Checks["database"].Status != infragin.HealthStatusHealthy {
		t.Errorf("database check = %q, want healthy", resp.Checks["database"].Status)
	}
}

func TestServerBuilder_DatabaseDownIsUnhealthy(t *testing.T) {
	server := infragin.NewServerBuilder("link-health", 8097).
		WithDatabaseHealthCheck(func() error { return errors.New("dial tcp: refused") }).
		Build()

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	server := infragin.NewServerBuilder("link-health", 8097).Build()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/dashboard", http.NoBody)
	req.Header.Set("Origin", "https://flowarts.wiki")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
