package bootstrap

import (
	"context"

	infragin "github.com/jonesrussell/north-cloud/link-health/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/link-health/internal/api"
)

const maxSnapshotBytes = 10 << 20

// SetupHTTPServer creates the HTTP server with health checks and metrics.
func SetupHTTPServer(app *App) *infragin.Server {
	router := api.NewRouter(
		app.ContentHandler(),
		app.Dashboard,
		app.Archive,
		app.Registry,
		maxSnapshotBytes,
		app.Log,
	)

	pings := api.HealthPings{
		Database: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			defer cancel()
			return app.Queue.Ping(ctx)
		},
	}
	if app.Redis != nil {
		pings.Redis = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			defer cancel()
			return app.Redis.Ping(ctx).Err()
		}
	}

	return api.NewServer(router, app.Config, pings, app.Metrics, app.Log)
}
