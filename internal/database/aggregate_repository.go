package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

// AggregateRepository runs the read-only dashboard queries. It may be bound
// to a read replica.
type AggregateRepository struct {
	db *sql.DB
}

// NewAggregateRepository creates an aggregate repository.
func NewAggregateRepository(db *sql.DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

// SchemaReady reports whether both link tables exist.
func (r *AggregateRepository) SchemaReady(ctx context.Context) (bool, error) {
	var ready bool
	err := r.db.QueryRowContext(ctx, `
		SELECT to_regclass('public.link_archive') IS NOT NULL
		   AND to_regclass('public.link_queue') IS NOT NULL
	`).Scan(&ready)
	if err != nil {
		return false, fmt.Errorf("check schema: %w", err)
	}
	return ready, nil
}

// Summary returns the headline counts in one round-trip.
func (r *AggregateRepository) Summary(ctx context.Context) (domain.Summary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_dead),
			COUNT(*) FILTER (WHERE wayback_url IS NOT NULL),
			COUNT(*) FILTER (WHERE snapshot_key IS NOT NULL),
			COUNT(*) FILTER (WHERE remediated),
			COUNT(DISTINCT domain),
			(SELECT COUNT(*) FROM link_queue)
		FROM link_archive
	`

	var s domain.Summary
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.Total, &s.Dead, &s.Archived, &s.Snapshotted, &s.Remediated, &s.Domains, &s.Queued,
	)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("query summary: %w", err)
	}
	return s, nil
}

// DomainRollup returns per-domain totals, largest domains first.
func (r *AggregateRepository) DomainRollup(ctx context.Context, limit int) ([]domain.DomainHealth, error) {
	query := `
		SELECT
			domain,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE NOT is_dead) AS healthy,
			COUNT(*) FILTER (WHERE is_dead) AS dead
		FROM link_archive
		GROUP BY domain
		ORDER BY total DESC, domain ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query domain rollup: %w", err)
	}
	defer rows.Close()

	var out []domain.DomainHealth
	for rows.Next() {
		var d domain.DomainHealth
		if scanErr := rows.Scan(&d.Domain, &d.Total, &d.Healthy, &d.Dead); scanErr != nil {
			return nil, fmt.Errorf("scan domain row: %w", scanErr)
		}
		out = append(out, d)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("domain rows: %w", rowsErr)
	}
	return out, nil
}

// DeadLinks returns dead links, most recently dead first.
func (r *AggregateRepository) DeadLinks(ctx context.Context, limit int) ([]domain.DeadLink, error) {
	query := `
		SELECT url, http_status, dead_since, consecutive_failures, wayback_url, snapshot_key, remediated
		FROM link_archive
		WHERE is_dead
		ORDER BY dead_since DESC, url ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query dead links: %w", err)
	}
	defer rows.Close()

	var out []domain.DeadLink
	for rows.Next() {
		var (
			d                 domain.DeadLink
			status            sql.NullInt64
			wayback, snapshot sql.NullString
		)
		if scanErr := rows.Scan(
			&d.URL, &status, &d.DeadSince, &d.ConsecutiveFailures, &wayback, &snapshot, &d.Remediated,
		); scanErr != nil {
			return nil, fmt.Errorf("scan dead link: %w", scanErr)
		}
		d.HTTPStatus = intPtr(status)
		d.WaybackURL = stringPtr(wayback)
		d.SnapshotKey = stringPtr(snapshot)
		out = append(out, d)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("dead link rows: %w", rowsErr)
	}
	return out, nil
}
