package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

// RecheckSourceID marks queue entries created by the scheduler.
const RecheckSourceID = "scheduler"

const defaultRecheckBatch = 500

// RecheckCandidates lists links due for a periodic recheck.
type RecheckCandidates interface {
	ListRecheckCandidates(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// RecheckService turns stale archive rows into recheck queue entries.
type RecheckService struct {
	archive  RecheckCandidates
	queue    Enqueuer
	interval time.Duration
	batch    int
	log      logger.Logger
	now      func() time.Time
}

// NewRecheckService creates a recheck service.
func NewRecheckService(archive RecheckCandidates, queue Enqueuer, interval time.Duration, batch int, log logger.Logger) *RecheckService {
	if interval <= 0 {
		interval = defaultRecheckInterval
	}
	if batch <= 0 {
		batch = defaultRecheckBatch
	}
	return &RecheckService{
		archive:  archive,
		queue:    queue,
		interval: interval,
		batch:    batch,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnqueueDue enqueues a recheck for links last checked before now minus the
// recheck interval and returns how many new entries were created.
func (s *RecheckService) EnqueueDue(ctx context.Context) (int, error) {
	now := s.now()
	urls, err := s.archive.ListRecheckCandidates(ctx, now.Add(-s.interval), s.batch)
	if err != nil {
		return 0, fmt.Errorf("list recheck candidates: %w", err)
	}

	enqueued, failed := 0, 0
	for _, u := range urls {
		inserted, enqErr := s.queue.Enqueue(ctx, &domain.QueueEntry{
			URL:      u,
			SourceID: RecheckSourceID,
			Action:   domain.ActionRecheck,
			QueuedAt: now,
		})
		if enqErr != nil {
			failed++
			s.log.Warn("Failed to enqueue recheck", logger.String("url", u), logger.Error(enqErr))
			continue
		}
		if inserted {
			enqueued++
		}
	}

	s.log.Info("Enqueued rechecks",
		logger.Int("candidates", len(urls)),
		logger.Int("enqueued", enqueued),
		logger.Int("failed", failed),
	)
	return enqueued, nil
}
