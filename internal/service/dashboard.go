package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

// Row caps for the dashboard views.
const (
	MaxDomainRows   = 50
	MaxDeadLinkRows = 100
)

// DashboardService assembles the aggregated health views.
type DashboardService struct {
	agg Aggregates
	log logger.Logger
	now func() time.Time
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(agg Aggregates, log logger.Logger) *DashboardService {
	return &DashboardService{
		agg: agg,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Dashboard runs the three aggregate queries concurrently. It returns
// domain.ErrSchemaMissing when setup has not run.
func (s *DashboardService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	dash := &domain.Dashboard{GeneratedAt: s.now()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.agg.Summary(gctx)
		dash.Summary = summary
		return err
	})
	g.Go(func() error {
		domains, err := s.agg.DomainRollup(gctx, MaxDomainRows)
		dash.Domains = domains
		return err
	})
	g.Go(func() error {
		dead, err := s.agg.DeadLinks(gctx, MaxDeadLinkRows)
		dash.DeadLinks = dead
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	dash.State = domain.DashboardReady
	if dash.Summary.Total == 0 {
		dash.State = domain.DashboardEmpty
	}
	if dash.Domains == nil {
		dash.Domains = []domain.DomainHealth{}
	}
	if dash.DeadLinks == nil {
		dash.DeadLinks = []domain.DeadLink{}
	}
	return dash, nil
}

// Summary returns the headline counts.
func (s *DashboardService) Summary(ctx context.Context) (domain.Summary, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return domain.Summary{}, err
	}
	return s.agg.Summary(ctx)
}

// Domains returns the per-domain rollup, capped at MaxDomainRows.
func (s *DashboardService) Domains(ctx context.Context, limit int) ([]domain.DomainHealth, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s.agg.DomainRollup(ctx, clampLimit(limit, MaxDomainRows))
}

// DeadLinks returns the dead-link report, capped at MaxDeadLinkRows.
func (s *DashboardService) DeadLinks(ctx context.Context, limit int) ([]domain.DeadLink, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s.agg.DeadLinks(ctx, clampLimit(limit, MaxDeadLinkRows))
}

func (s *DashboardService) ensureSchema(ctx context.Context) error {
	ready, err := s.agg.SchemaReady(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return domain.ErrSchemaMissing
	}
	return nil
}

func clampLimit(limit, maxRows int) int {
	if limit <= 0 || limit > maxRows {
		return maxRows
	}
	return limit
}
