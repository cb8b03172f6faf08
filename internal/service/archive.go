package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/health"
	"github.com/jonesrussell/north-cloud/link-health/internal/metrics"
)

const (
	defaultRecheckInterval = 168 * time.Hour
	defaultDueBatch        = 100
	maxDueBatch            = 1000
)

// ArchiveService applies checker results and annotations to the archive.
type ArchiveService struct {
	archive         Archive
	policy          health.Policy
	snapshots       SnapshotStore
	recheckInterval time.Duration
	dueBatch        int
	log             logger.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

// NewArchiveService creates an archive service. snapshots may be nil when no
// object storage is configured.
func NewArchiveService(
	archive Archive,
	policy health.Policy,
	snapshots SnapshotStore,
	recheckInterval time.Duration,
	dueBatch int,
	log logger.Logger,
	m *metrics.Metrics,
) *ArchiveService {
	if recheckInterval <= 0 {
		recheckInterval = defaultRecheckInterval
	}
	if dueBatch <= 0 {
		dueBatch = defaultDueBatch
	}
	return &ArchiveService{
		archive:         archive,
		policy:          policy,
		snapshots:       snapshots,
		recheckInterval: recheckInterval,
		dueBatch:        dueBatch,
		log:             log,
		metrics:         m,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// RecordProbes applies each result independently. Unknown URLs are ignored
// and never create rows; storage errors are counted and the batch continues.
func (s *ArchiveService) RecordProbes(ctx context.Context, probes []domain.ProbeResult) domain.ProbeReport {
	var report domain.ProbeReport

	for _, probe := range probes {
		normalized, err := domain.NormalizeURL(probe.URL)
		if err != nil {
			report.Ignored++
			s.log.Debug("Ignoring probe for invalid URL", logger.String("url", probe.URL))
			continue
		}
		if probe.CheckedAt.IsZero() {
			probe.CheckedAt = s.now()
		}

		transition, err := s.archive.ApplyProbe(ctx, normalized, probe, s.policy)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			report.Ignored++
			s.log.Debug("Ignoring probe for unknown link", logger.String("url", normalized))
			continue
		case err != nil:
			report.Failed++
			s.log.Warn("Failed to apply probe", logger.String("url", normalized), logger.Error(err))
			continue
		}

		report.Applied++
		if transition.BecameDead() {
			report.NewlyDead++
			s.log.Info("Link marked dead",
				logger.String("url", normalized),
				logger.Int("consecutive_failures", transition.After.ConsecutiveFailures),
			)
		}
		if transition.Recovered() {
			report.Recovered++
			s.log.Info("Link recovered", logger.String("url", normalized))
		}
	}

	s.metrics.ObserveProbes(report)
	return report
}

// SetWayback records an archived copy reference for rawURL.
func (s *ArchiveService) SetWayback(ctx context.Context, rawURL, waybackURL string, capturedAt time.Time) error {
	normalized, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	if capturedAt.IsZero() {
		capturedAt = s.now()
	}
	return s.archive.SetWayback(ctx, normalized, waybackURL, capturedAt)
}

// StoreSnapshot uploads body as a snapshot of a known link and records its key.
func (s *ArchiveService) StoreSnapshot(ctx context.Context, rawURL string, body []byte, contentType string) (string, error) {
	if s.snapshots == nil {
		return "", domain.ErrSnapshotsDisabled
	}
	normalized, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	if _, err := s.archive.Get(ctx, normalized); err != nil {
		return "", err
	}

	capturedAt := s.now()
	key, err := s.snapshots.Put(ctx, normalized, capturedAt, body, contentType)
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	if err := s.archive.SetSnapshot(ctx, normalized, key, capturedAt); err != nil {
		return "", err
	}

	s.log.Info("Stored snapshot", logger.String("url", normalized), logger.String("key", key))
	return key, nil
}

// MarkRemediated records that a dead link was fixed in the content.
func (s *ArchiveService) MarkRemediated(ctx context.Context, rawURL, by string) error {
	normalized, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	return s.archive.MarkRemediated(ctx, normalized, by, s.now())
}

// Link returns the archive row for rawURL.
func (s *ArchiveService) Link(ctx context.Context, rawURL string) (*domain.LinkRecord, error) {
	normalized, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	return s.archive.Get(ctx, normalized)
}

// ListDue returns the checker's next work list. A non-positive limit uses the
// configured batch size.
func (s *ArchiveService) ListDue(ctx context.Context, limit int) ([]domain.LinkRecord, error) {
	if limit <= 0 {
		limit = s.dueBatch
	}
	limit = min(limit, maxDueBatch)
	return s.archive.ListDue(ctx, s.now().Add(-s.recheckInterval), limit)
}
