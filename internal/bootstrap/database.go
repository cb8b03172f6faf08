package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/config"
	"github.com/jonesrussell/north-cloud/link-health/internal/database"
)

// Databases holds the primary connection and the optional read replica used
// by the dashboard aggregates. Replica is the primary when none is configured.
type Databases struct {
	Primary *sql.DB
	Replica *sql.DB
}

// SetupDatabase opens the primary and, when configured, the replica.
func SetupDatabase(ctx context.Context, cfg *config.Config, log logger.Logger) (*Databases, error) {
	pool := database.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()

	primary, err := database.Open(connectCtx, cfg.Database.DSN(), pool)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}
	dbs := &Databases{Primary: primary, Replica: primary}

	if dsn := cfg.Database.ReplicaDSN(); dsn != "" {
		replica, replicaErr := database.Open(connectCtx, dsn, pool)
		if replicaErr != nil {
			log.Warn("Read replica unavailable, dashboard reads use the primary",
				logger.String("replica_host", cfg.Database.ReplicaHost),
				logger.Error(replicaErr),
			)
		} else {
			dbs.Replica = replica
		}
	}

	log.Info("Database connection established",
		logger.String("host", cfg.Database.Host),
		logger.Bool("replica", dbs.Replica != dbs.Primary),
	)
	return dbs, nil
}

// Close closes both connections.
func (d *Databases) Close() error {
	if d.Replica != d.Primary {
		_ = d.Replica.Close()
	}
	return d.Primary.Close()
}
