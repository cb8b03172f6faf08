package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/metrics"
)

const (
	defaultQueueBatch       = 200
	defaultClaimTTL         = 15 * time.Minute
	defaultQueueConcurrency = 4
)

type entryOutcome int

const (
	outcomeCreated entryOutcome = iota
	outcomeMerged
	outcomeRecheck
	outcomeDiscarded
)

// QueueProcessor drains the discovery queue into the archive. It is the only
// path that creates archive rows.
type QueueProcessor struct {
	queue       Queue
	archive     Archive
	batchSize   int
	claimTTL    time.Duration
	concurrency int
	limiter     *rate.Limiter
	guard       SeenForgetter
	log         logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewQueueProcessor creates a processor. Non-positive sizes use defaults.
func NewQueueProcessor(
	queue Queue,
	archive Archive,
	batchSize int,
	claimTTL time.Duration,
	log logger.Logger,
	m *metrics.Metrics,
) *QueueProcessor {
	if batchSize <= 0 {
		batchSize = defaultQueueBatch
	}
	if claimTTL <= 0 {
		claimTTL = defaultClaimTTL
	}
	return &QueueProcessor{
		queue:       queue,
		archive:     archive,
		batchSize:   batchSize,
		claimTTL:    claimTTL,
		concurrency: defaultQueueConcurrency,
		log:         log,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithRateLimit caps archive writes at perSecond entries per second. Zero or
// less removes the cap.
func (p *QueueProcessor) WithRateLimit(perSecond int) *QueueProcessor {
	if perSecond <= 0 {
		p.limiter = nil
		return p
	}
	p.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	return p
}

// WithGuard clears the dedup marker of every completed entry, so a later save
// of the same link reaches the archive again before the marker expires.
func (p *QueueProcessor) WithGuard(guard SeenForgetter) *QueueProcessor {
	p.guard = guard
	return p
}

// ProcessBatch claims one batch, applies every entry and deletes the ones
// that were handled. Entries that hit a storage error are released for retry.
func (p *QueueProcessor) ProcessBatch(ctx context.Context) (domain.QueueReport, error) {
	var report domain.QueueReport

	entries, err := p.queue.Claim(ctx, p.batchSize, p.now().Add(-p.claimTTL))
	if err != nil {
		return report, fmt.Errorf("claim batch: %w", err)
	}
	report.Claimed = len(entries)
	if len(entries) == 0 {
		return report, nil
	}

	var (
		mu   sync.Mutex
		done = make([]domain.QueueEntry, 0, len(entries))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, entry := range entries {
		g.Go(func() error {
			outcome, procErr := p.processEntry(gctx, entry)
			if procErr != nil {
				p.log.Warn("Failed to process queue entry",
					logger.Int64("id", entry.ID),
					logger.String("url", entry.URL),
					logger.Error(procErr),
				)
				if relErr := p.queue.Release(ctx, entry.ID); relErr != nil {
					p.log.Warn("Failed to release queue entry", logger.Int64("id", entry.ID), logger.Error(relErr))
				}
			}

			mu.Lock()
			defer mu.Unlock()

			if procErr != nil {
				report.Failed++
				return nil
			}

			done = append(done, entry)
			switch outcome {
			case outcomeCreated:
				report.Created++
			case outcomeMerged:
				report.Merged++
			case outcomeRecheck:
				report.Rechecks++
			case outcomeDiscarded:
				report.Discarded++
			}
			return nil
		})
	}
	_ = g.Wait()

	ids := make([]int64, len(done))
	for i, entry := range done {
		ids[i] = entry.ID
	}
	if _, err := p.queue.Complete(ctx, ids); err != nil {
		return report, fmt.Errorf("complete batch: %w", err)
	}
	if p.guard != nil {
		for _, entry := range done {
			p.guard.Forget(ctx, entry)
		}
	}

	p.metrics.ObserveQueue(report)
	p.log.Info("Processed queue batch",
		logger.Int("claimed", report.Claimed),
		logger.Int("created", report.Created),
		logger.Int("merged", report.Merged),
		logger.Int("rechecks", report.Rechecks),
		logger.Int("discarded", report.Discarded),
		logger.Int("failed", report.Failed),
	)

	return report, nil
}

// Drain processes batches until the queue is empty, a batch makes no
// progress, or ctx is done.
func (p *QueueProcessor) Drain(ctx context.Context) (domain.QueueReport, error) {
	var total domain.QueueReport
	for ctx.Err() == nil {
		report, err := p.ProcessBatch(ctx)
		total = addQueueReports(total, report)
		if err != nil {
			return total, err
		}
		if report.Claimed < p.batchSize || report.Failed == report.Claimed {
			return total, nil
		}
	}
	return total, ctx.Err()
}

func (p *QueueProcessor) processEntry(ctx context.Context, entry domain.QueueEntry) (entryOutcome, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	switch entry.Action {
	case domain.ActionDiscover:
		d, err := domain.NewDiscovery(entry.URL, entry.SourceID, entry.QueuedAt)
		if err != nil {
			p.log.Debug("Discarding unnormalizable URL", logger.String("url", entry.URL), logger.Error(err))
			return outcomeDiscarded, nil
		}
		created, err := p.archive.RecordDiscovery(ctx, d)
		if err != nil {
			return 0, err
		}
		if created {
			return outcomeCreated, nil
		}
		return outcomeMerged, nil

	case domain.ActionRecheck:
		normalized, err := domain.NormalizeURL(entry.URL)
		if err != nil {
			return outcomeDiscarded, nil
		}
		err = p.archive.RequestRecheck(ctx, normalized, entry.QueuedAt)
		if errors.Is(err, domain.ErrNotFound) {
			p.log.Debug("Ignoring recheck for unknown link", logger.String("url", normalized))
			return outcomeDiscarded, nil
		}
		if err != nil {
			return 0, err
		}
		return outcomeRecheck, nil

	default:
		p.log.Warn("Discarding entry with unknown action",
			logger.Int64("id", entry.ID),
			logger.String("action", string(entry.Action)),
		)
		return outcomeDiscarded, nil
	}
}

// Pending returns the number of unresolved queue entries.
func (p *QueueProcessor) Pending(ctx context.Context) (int64, error) {
	return p.queue.Count(ctx)
}

func addQueueReports(a, b domain.QueueReport) domain.QueueReport {
	return domain.QueueReport{
		Claimed:   a.Claimed + b.Claimed,
		Created:   a.Created + b.Created,
		Merged:    a.Merged + b.Merged,
		Rechecks:  a.Rechecks + b.Rechecks,
		Discarded: a.Discarded + b.Discarded,
		Failed:    a.Failed + b.Failed,
	}
}
