// Package bootstrap wires configuration, storage and services for the
// link-health commands.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/scheduler"
)

const pingTimeout = 2 * time.Second

// Serve runs the HTTP API until ctx is cancelled. The scheduler runs
// alongside it when enabled.
func Serve(ctx context.Context, configPath string) error {
	app, err := NewApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	app.Log.Info("Starting link-health",
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
		logger.String("server_host", cfg.Service.ServerHost),
		logger.Bool("async_discovery", cfg.Service.AsyncDiscovery),
	)

	if app.Dispatcher != nil {
		app.Dispatcher.Start()
		defer app.Dispatcher.Stop()
	}

	if cfg.Scheduler.Enabled {
		sched, schedErr := SetupScheduler(app)
		if schedErr != nil {
			return schedErr
		}
		sched.Start()
		defer sched.Stop()
	}

	server := SetupHTTPServer(app)
	if runErr := server.Run(ctx); runErr != nil {
		app.Log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server: %w", runErr)
	}

	app.Log.Info("link-health stopped")
	return nil
}

// RunScheduler runs only the periodic jobs until ctx is cancelled.
func RunScheduler(ctx context.Context, configPath string) error {
	app, err := NewApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := SetupScheduler(app)
	if err != nil {
		return err
	}
	sched.Start()
	<-ctx.Done()
	sched.Stop()
	return nil
}

// SetupScheduler registers the queue drain and recheck jobs.
func SetupScheduler(app *App) (*scheduler.Scheduler, error) {
	sched := scheduler.New(app.Log, app.Metrics)

	jobs := []scheduler.Job{
		{
			Name: scheduler.JobProcessQueue,
			Spec: app.Config.Scheduler.QueueSchedule,
			Run: func(ctx context.Context) error {
				_, err := app.Processor.Drain(ctx)
				return err
			},
		},
		{
			Name: scheduler.JobEnqueueRechecks,
			Spec: app.Config.Scheduler.RecheckSchedule,
			Run: func(ctx context.Context) error {
				_, err := app.Rechecks.EnqueueDue(ctx)
				return err
			},
		},
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
	}
	return sched, nil
}
