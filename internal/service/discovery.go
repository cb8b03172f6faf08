package service

import (
	"context"
	"time"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/extract"
	"github.com/jonesrussell/north-cloud/link-health/internal/metrics"
)

// DefaultDiscoveryBudget bounds discovery on the save path.
const DefaultDiscoveryBudget = 2 * time.Second

// DiscoveryService extracts external links from saved content and queues
// them. It never fails the save: storage errors are logged and counted.
type DiscoveryService struct {
	queue      Enqueuer
	guard      SeenGuard
	serverHost string
	budget     time.Duration
	log        logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewDiscoveryService creates a discovery service. guard and m may be nil.
func NewDiscoveryService(
	queue Enqueuer,
	guard SeenGuard,
	serverHost string,
	budget time.Duration,
	log logger.Logger,
	m *metrics.Metrics,
) *DiscoveryService {
	if budget <= 0 {
		budget = DefaultDiscoveryBudget
	}
	return &DiscoveryService{
		queue:      queue,
		guard:      guard,
		serverHost: serverHost,
		budget:     budget,
		log:        log,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// HandleContentChange queues a discover entry for every external URL in the
// changed text. URLs left when the budget runs out are abandoned.
func (s *DiscoveryService) HandleContentChange(ctx context.Context, change domain.ContentChange) domain.DiscoveryResult {
	urls := extract.Extract(change.Text)
	result := domain.DiscoveryResult{Found: len(urls)}
	if len(urls) == 0 {
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	queuedAt := change.Timestamp
	if queuedAt.IsZero() {
		queuedAt = s.now()
	}

	for i, u := range urls {
		if ctx.Err() != nil {
			result.Abandoned = len(urls) - i
			s.log.Warn("Discovery budget exhausted",
				logger.String("source_id", change.SourceID),
				logger.Int("abandoned", result.Abandoned),
				logger.Duration("budget", s.budget),
			)
			break
		}

		if extract.Classify(u, s.serverHost) == extract.Internal {
			result.Internal++
			continue
		}

		s.enqueue(ctx, domain.QueueEntry{
			URL:      u,
			SourceID: change.SourceID,
			Action:   domain.ActionDiscover,
			QueuedAt: queuedAt,
		}, &result)
	}

	s.metrics.ObserveDiscovery(result)
	s.log.Debug("Content change processed",
		logger.String("source_id", change.SourceID),
		logger.Int("found", result.Found),
		logger.Int("enqueued", result.Enqueued),
		logger.Int("duplicates", result.Duplicates),
		logger.Int("failed", result.Failed),
	)

	return result
}

func (s *DiscoveryService) enqueue(ctx context.Context, entry domain.QueueEntry, result *domain.DiscoveryResult) {
	if s.guard != nil && !s.guard.FirstSeen(ctx, entry) {
		result.Duplicates++
		return
	}

	inserted, err := s.queue.Enqueue(ctx, &entry)
	if err != nil {
		result.Failed++
		s.log.Warn("Failed to enqueue discovered link",
			logger.String("url", entry.URL),
			logger.String("source_id", entry.SourceID),
			logger.Error(err),
		)
		if s.guard != nil {
			s.guard.Forget(context.WithoutCancel(ctx), entry)
		}
		return
	}

	if inserted {
		result.Enqueued++
	} else {
		result.Duplicates++
	}
}
