package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/config"
	"github.com/jonesrussell/north-cloud/link-health/internal/database"
	"github.com/jonesrussell/north-cloud/link-health/internal/dedup"
	"github.com/jonesrussell/north-cloud/link-health/internal/health"
	"github.com/jonesrussell/north-cloud/link-health/internal/metrics"
	"github.com/jonesrussell/north-cloud/link-health/internal/service"
)

// App holds the wired dependencies shared by every command.
type App struct {
	Config   *config.Config
	Log      logger.Logger
	DB       *Databases
	Redis    *goredis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Queue       *database.QueueRepository
	ArchiveRepo *database.ArchiveRepository
	Guard       service.SeenGuard
	Discovery   *service.DiscoveryService
	Dispatcher  *service.Dispatcher
	Processor   *service.QueueProcessor
	Archive     *service.ArchiveService
	Rechecks    *service.RecheckService
	Dashboard   *service.DashboardService
}

// NewApp loads configuration and wires storage and services.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	dbs, err := SetupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	store, err := SetupSnapshots(ctx, cfg, log)
	if err != nil {
		_ = dbs.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := &App{
		Config:   cfg,
		Log:      log,
		DB:       dbs,
		Redis:    SetupRedis(ctx, cfg, log),
		Registry: reg,
		Metrics:  metrics.New(reg),
	}
	var snapshots service.SnapshotStore
	if store != nil {
		snapshots = store
	}
	app.wireServices(snapshots)

	return app, nil
}

func (a *App) wireServices(store service.SnapshotStore) {
	cfg := a.Config
	queue := database.NewQueueRepository(a.DB.Primary)
	archive := database.NewArchiveRepository(a.DB.Primary)
	a.Queue = queue
	a.ArchiveRepo = archive

	if a.Redis != nil {
		a.Guard = dedup.NewGuard(a.Redis, cfg.Redis.DedupTTL, a.Log)
	}

	a.Discovery = service.NewDiscoveryService(
		queue, a.Guard, cfg.Service.ServerHost, cfg.Service.DiscoveryBudget, a.Log, a.Metrics,
	)
	if cfg.Service.AsyncDiscovery {
		a.Dispatcher = service.NewDispatcher(a.Discovery, cfg.Service.BufferSize, cfg.Service.Workers, a.Log, a.Metrics)
	}

	a.Processor = service.NewQueueProcessor(
		queue, archive, cfg.Checker.QueueBatch, cfg.Checker.ClaimTTL, a.Log, a.Metrics,
	).WithRateLimit(cfg.Checker.ProcessRate).WithGuard(a.Guard)
	a.Archive = service.NewArchiveService(
		archive,
		health.NewThresholdPolicy(cfg.Checker.FailureThreshold),
		store,
		cfg.Checker.RecheckInterval,
		cfg.Checker.DueBatch,
		a.Log,
		a.Metrics,
	)
	a.Rechecks = service.NewRecheckService(
		archive, queue, cfg.Checker.RecheckInterval, cfg.Checker.RecheckBatch, a.Log,
	)
	a.Dashboard = service.NewDashboardService(database.NewAggregateRepository(a.DB.Replica), a.Log)
}

// ContentHandler returns the dispatcher in async mode and the synchronous
// discovery service otherwise.
func (a *App) ContentHandler() service.ContentHandler {
	if a.Dispatcher != nil {
		return a.Dispatcher
	}
	return a.Discovery
}

// Close releases connections and flushes the logger.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("Failed to close redis", logger.Error(err))
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Log.Error("Failed to close database", logger.Error(err))
	}
	_ = a.Log.Sync()
}
