package api

import (
	"time"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/link-health/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/config"
	"github.com/jonesrussell/north-cloud/link-health/internal/metrics"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// HealthPings are the dependency checks reported on /health. Nil entries are skipped.
type HealthPings struct {
	Database func() error
	Redis    func() error
}

// NewServer creates the HTTP server.
func NewServer(
	router *Router,
	cfg *config.Config,
	pings HealthPings,
	m *metrics.Metrics,
	log logger.Logger,
) *infragin.Server {
	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout).
		WithMiddleware(m.GinMiddleware())

	if pings.Database != nil {
		builder = builder.WithDatabaseHealthCheck(pings.Database)
	}
	if pings.Redis != nil {
		builder = builder.WithRedisHealthCheck(pings.Redis)
	}

	return builder.
		WithRoutes(func(engine *gin.Engine) {
			router.SetupRoutes(engine)
		}).
		Build()
}
