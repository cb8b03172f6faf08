package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/link-health/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/link-health/internal/config"
	"github.com/jonesrussell/north-cloud/link-health/internal/snapshot"
)

// SetupRedis connects the dedup guard's Redis client. It returns nil when
// Redis is disabled or unreachable; discovery then relies on the database alone.
func SetupRedis(ctx context.Context, cfg *config.Config, log logger.Logger) *goredis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client, err := infraredis.NewClient(ctx, infraredis.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, dedup guard disabled",
			logger.String("address", cfg.Redis.Address),
			logger.Error(err),
		)
		return nil
	}

	log.Info("Redis connected", logger.String("address", cfg.Redis.Address))
	return client
}

// SetupSnapshots creates the object store client, or nil when no bucket is configured.
func SetupSnapshots(ctx context.Context, cfg *config.Config, log logger.Logger) (*snapshot.Store, error) {
	if !cfg.Snapshots.Enabled() {
		log.Info("Snapshot storage disabled")
		return nil, nil
	}

	store, err := snapshot.NewS3Store(ctx, snapshot.Config{
		Endpoint:  cfg.Snapshots.Endpoint,
		AccessKey: cfg.Snapshots.AccessKey,
		SecretKey: cfg.Snapshots.SecretKey,
		Bucket:    cfg.Snapshots.Bucket,
		Prefix:    cfg.Snapshots.Prefix,
		Region:    cfg.Snapshots.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot store: %w", err)
	}

	log.Info("Snapshot storage configured", logger.String("bucket", cfg.Snapshots.Bucket))
	return store, nil
}
