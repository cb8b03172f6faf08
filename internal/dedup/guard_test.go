package dedup_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/dedup"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

func newGuard(t *testing.T) (*dedup.Guard, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return dedup.NewGuard(client, time.Minute, logger.NewNop()), srv
}

func entry(source string) domain.QueueEntry {
	return domain.QueueEntry{URL: "http://example.org/a", SourceID: source, Action: domain.ActionDiscover}
}

func TestGuard_FirstSeen(t *testing.T) {
	guard, srv := newGuard(t)
	ctx := context.Background()

	assert.True(t, guard.FirstSeen(ctx, entry("page-1")))
	assert.False(t, guard.FirstSeen(ctx, entry("page-1")), "second sighting must be suppressed")
	assert.True(t, guard.FirstSeen(ctx, entry("page-2")), "different source is a different identity")

	ttl := srv.TTL(dedup.Key(entry("page-1")))
	assert.Equal(t, time.Minute, ttl)

	srv.FastForward(2 * time.Minute)
	assert.True(t, guard.FirstSeen(ctx, entry("page-1")), "marker expires after ttl")
}

func TestGuard_Forget(t *testing.T) {
	guard, srv := newGuard(t)
	ctx := context.Background()

	require.True(t, guard.FirstSeen(ctx, entry("page-1")))
	guard.Forget(ctx, entry("page-1"))

	assert.False(t, srv.Exists(dedup.Key(entry("page-1"))))
	assert.True(t, guard.FirstSeen(ctx, entry("page-1")))
}

func TestGuard_FailsOpen(t *testing.T) {
	guard, srv := newGuard(t)
	srv.Close()

	assert.True(t, guard.FirstSeen(context.Background(), entry("page-1")))
	guard.Forget(context.Background(), entry("page-1"))
}

func TestKey(t *testing.T) {
	t.Parallel()

	key := dedup.Key(entry("page-1"))
	assert.True(t, strings.HasPrefix(key, "link-health:seen:"))
	assert.Len(t, strings.TrimPrefix(key, "link-health:seen:"), 64)
	assert.NotEqual(t, key, dedup.Key(domain.QueueEntry{
		URL: "http://example.org/a", SourceID: "page-1", Action: domain.ActionRecheck,
	}))
}
