// Package service orchestrates link discovery, queue draining, probe
// application and the dashboard aggregates on top of the repositories.
package service

import (
	"context"
	"time"

	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/health"
)

// Enqueuer inserts queue entries idempotently.
type Enqueuer interface {
	Enqueue(ctx context.Context, entry *domain.QueueEntry) (bool, error)
}

// Queue is the full discovery queue contract used by the processor.
type Queue interface {
	Enqueuer
	Claim(ctx context.Context, limit int, staleBefore time.Time) ([]domain.QueueEntry, error)
	Complete(ctx context.Context, ids []int64) (int64, error)
	Release(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// Archive is the link archive contract.
type Archive interface {
	RecordDiscovery(ctx context.Context, d domain.Discovery) (bool, error)
	ApplyProbe(ctx context.Context, url string, probe domain.ProbeResult, policy health.Policy) (domain.Transition, error)
	RequestRecheck(ctx context.Context, url string, at time.Time) error
	SetWayback(ctx context.Context, url, waybackURL string, capturedAt time.Time) error
	SetSnapshot(ctx context.Context, url, key string, capturedAt time.Time) error
	MarkRemediated(ctx context.Context, url, by string, at time.Time) error
	Get(ctx context.Context, url string) (*domain.LinkRecord, error)
	ListDue(ctx context.Context, before time.Time, limit int) ([]domain.LinkRecord, error)
	ListRecheckCandidates(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// Aggregates is the read-only dashboard contract.
type Aggregates interface {
	SchemaReady(ctx context.Context) (bool, error)
	Summary(ctx context.Context) (domain.Summary, error)
	DomainRollup(ctx context.Context, limit int) ([]domain.DomainHealth, error)
	DeadLinks(ctx context.Context, limit int) ([]domain.DeadLink, error)
}

// SeenForgetter clears a dedup marker.
type SeenForgetter interface {
	Forget(ctx context.Context, entry domain.QueueEntry)
}

// SeenGuard suppresses repeated enqueues within a short window.
type SeenGuard interface {
	SeenForgetter
	FirstSeen(ctx context.Context, entry domain.QueueEntry) bool
}

// SnapshotStore uploads captured copies and returns their object key.
type SnapshotStore interface {
	Put(ctx context.Context, normalizedURL string, capturedAt time.Time, body []byte, contentType string) (string, error)
}

// ContentHandler turns a content change into queue entries.
type ContentHandler interface {
	HandleContentChange(ctx context.Context, change domain.ContentChange) domain.DiscoveryResult
}
