// Package dedup short-circuits repeated discoveries of the same link within a
// short window so rapid re-saves skip the database round-trip.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

const (
	// DefaultTTL is how long a seen marker suppresses re-enqueueing.
	DefaultTTL = 10 * time.Minute

	keyPrefix = "link-health:seen:"
)

// Guard tracks recently enqueued queue identities in Redis.
type Guard struct {
	client redis.Cmdable
	ttl    time.Duration
	log    logger.Logger
}

// NewGuard creates a guard. A non-positive ttl uses DefaultTTL.
func NewGuard(client redis.Cmdable, ttl time.Duration, log logger.Logger) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Guard{client: client, ttl: ttl, log: log}
}

// FirstSeen marks the entry as seen and reports whether it was new. Redis
// failures count as new so the durable insert still runs.
func (g *Guard) FirstSeen(ctx context.Context, entry domain.QueueEntry) bool {
	ok, err := g.client.SetNX(ctx, Key(entry), 1, g.ttl).Result()
	if err != nil {
		g.log.Warn("Dedup guard unavailable, falling through to database",
			logger.String("url", entry.URL),
			logger.Error(err),
		)
		return true
	}
	return ok
}

// Forget removes the marker so the next save retries the insert.
func (g *Guard) Forget(ctx context.Context, entry domain.QueueEntry) {
	if err := g.client.Del(ctx, Key(entry)).Err(); err != nil {
		g.log.Warn("Failed to clear dedup marker",
			logger.String("url", entry.URL),
			logger.Error(err),
		)
	}
}

// Key returns the Redis key for a queue identity.
func Key(entry domain.QueueEntry) string {
	h := sha256.Sum256([]byte(entry.URL + "|" + entry.SourceID + "|" + string(entry.Action)))
	return keyPrefix + hex.EncodeToString(h[:])
}
