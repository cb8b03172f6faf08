package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/health"
)

const archiveSelectList = `
	id, url, url_hash, domain, source_ids,
	http_status, is_dead, dead_since, consecutive_failures,
	last_checked_at, recheck_requested_at,
	wayback_url, wayback_captured_at, snapshot_key, snapshot_captured_at,
	remediated, remediated_at, remediated_by,
	first_seen_at, updated_at`

// ArchiveRepository persists one row per distinct external URL. Every write
// touches a single field group of a single row.
type ArchiveRepository struct {
	db *sql.DB
}

// NewArchiveRepository creates an archive repository.
func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// RecordDiscovery creates the row for d.URL or merges d.SourceID into an
// existing one. It is the only operation that creates rows. A rediscovered
// link that went dead again after an earlier remediation loses its remediated
// flag. Returns true when the row was created.
func (r *ArchiveRepository) RecordDiscovery(ctx context.Context, d domain.Discovery) (bool, error) {
	query := `
		INSERT INTO link_archive (url, url_hash, domain, source_ids, first_seen_at, updated_at)
		VALUES ($1, $2, $3, ARRAY[$4::text], $5, $5)
		ON CONFLICT (url) DO UPDATE SET
			source_ids = CASE
				WHEN $4::text = ANY(link_archive.source_ids) THEN link_archive.source_ids
				ELSE array_append(link_archive.source_ids, $4::text)
			END,
			remediated = CASE
				WHEN ` + staleRemediation + ` THEN FALSE
				ELSE link_archive.remediated
			END,
			remediated_at = CASE
				WHEN ` + staleRemediation + ` THEN NULL
				ELSE link_archive.remediated_at
			END,
			remediated_by = CASE
				WHEN ` + staleRemediation + ` THEN NULL
				ELSE link_archive.remediated_by
			END,
			updated_at = $5
		RETURNING (xmax = 0) AS created
	`

	var created bool
	if err := r.db.QueryRowContext(ctx, query, d.URL, d.URLHash, d.Domain, d.SourceID, d.SeenAt).Scan(&created); err != nil {
		return false, fmt.Errorf("record discovery: %w", err)
	}
	return created, nil
}

// staleRemediation matches a remediation that belongs to an earlier dead episode.
const staleRemediation = `link_archive.is_dead AND link_archive.remediated
				AND COALESCE(link_archive.remediated_at, '-infinity'::timestamptz) < link_archive.dead_since`

// ApplyProbe evaluates probe against the stored health state under a row lock
// and writes back the health field group. Concurrent probes of one URL
// serialize. Returns domain.ErrNotFound when the URL has no row.
func (r *ArchiveRepository) ApplyProbe(
	ctx context.Context,
	url string,
	probe domain.ProbeResult,
	policy health.Policy,
) (domain.Transition, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Transition{}, fmt.Errorf("begin probe tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		status    sql.NullInt64
		deadSince sql.NullTime
		current   domain.HealthState
	)
	selectErr := tx.QueryRowContext(ctx, `
		SELECT http_status, is_dead, dead_since, consecutive_failures
		FROM link_archive
		WHERE url = $1
		FOR UPDATE
	`, url).Scan(&status, &current.IsDead, &deadSince, &current.ConsecutiveFailures)
	if errors.Is(selectErr, sql.ErrNoRows) {
		return domain.Transition{}, domain.ErrNotFound
	}
	if selectErr != nil {
		return domain.Transition{}, fmt.Errorf("lock link: %w", selectErr)
	}
	current.HTTPStatus = intPtr(status)
	current.DeadSince = timePtr(deadSince)

	next := policy.Evaluate(current, probe)

	_, updateErr := tx.ExecContext(ctx, `
		UPDATE link_archive
		SET http_status = $2,
		    is_dead = $3,
		    dead_since = $4,
		    consecutive_failures = $5,
		    last_checked_at = $6,
		    recheck_requested_at = NULL,
		    updated_at = NOW()
		WHERE url = $1
	`, url, nullableInt(next.HTTPStatus), next.IsDead, nullableTime(next.DeadSince), next.ConsecutiveFailures, probe.CheckedAt)
	if updateErr != nil {
		return domain.Transition{}, fmt.Errorf("update health: %w", updateErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return domain.Transition{}, fmt.Errorf("commit probe: %w", commitErr)
	}

	return domain.Transition{URL: url, Before: current, After: next}, nil
}

// RequestRecheck moves url to the front of the checker's work list.
func (r *ArchiveRepository) RequestRecheck(ctx context.Context, url string, at time.Time) error {
	query := `
		UPDATE link_archive
		SET recheck_requested_at = COALESCE(recheck_requested_at, $2),
		    updated_at = NOW()
		WHERE url = $1`
	return wrapUpdate("request recheck", execExpectOneRow(ctx, r.db, query, url, at))
}

// SetWayback records an archived copy of url.
func (r *ArchiveRepository) SetWayback(ctx context.Context, url, waybackURL string, capturedAt time.Time) error {
	query := `
		UPDATE link_archive
		SET wayback_url = $2,
		    wayback_captured_at = $3,
		    updated_at = NOW()
		WHERE url = $1`
	return wrapUpdate("set wayback", execExpectOneRow(ctx, r.db, query, url, waybackURL, capturedAt))
}

// SetSnapshot records the object key of a stored snapshot of url.
func (r *ArchiveRepository) SetSnapshot(ctx context.Context, url, key string, capturedAt time.Time) error {
	query := `
		UPDATE link_archive
		SET snapshot_key = $2,
		    snapshot_captured_at = $3,
		    updated_at = NOW()
		WHERE url = $1`
	return wrapUpdate("set snapshot", execExpectOneRow(ctx, r.db, query, url, key, capturedAt))
}

// MarkRemediated flags a dead link as fixed in the content. Returns
// domain.ErrNotDead when the link is alive and domain.ErrNotFound when unknown.
func (r *ArchiveRepository) MarkRemediated(ctx context.Context, url, by string, at time.Time) error {
	query := `
		UPDATE link_archive
		SET remediated = TRUE,
		    remediated_at = $3,
		    remediated_by = $2,
		    updated_at = NOW()
		WHERE url = $1 AND is_dead`
	err := execExpectOneRow(ctx, r.db, query, url, by, at)
	if !errors.Is(err, domain.ErrNotFound) {
		return wrapUpdate("mark remediated", err)
	}

	var exists bool
	if existsErr := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM link_archive WHERE url = $1)`, url,
	).Scan(&exists); existsErr != nil {
		return fmt.Errorf("mark remediated: %w", existsErr)
	}
	if exists {
		return domain.ErrNotDead
	}
	return domain.ErrNotFound
}

func wrapUpdate(op string, err error) error {
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Get returns the row for url.
func (r *ArchiveRepository) Get(ctx context.Context, url string) (*domain.LinkRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+archiveSelectList+` FROM link_archive WHERE url = $1`, url)
	rec, err := scanLinkRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return rec, nil
}

// ListDue returns the checker's work list: never-checked links first, then
// links with a requested recheck, then links last checked before the cutoff.
// Each group is ordered oldest first.
func (r *ArchiveRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]domain.LinkRecord, error) {
	query := `
		SELECT ` + archiveSelectList + `
		FROM link_archive
		WHERE last_checked_at IS NULL
		   OR recheck_requested_at IS NOT NULL
		   OR last_checked_at < $1
		ORDER BY
			CASE
				WHEN last_checked_at IS NULL THEN 0
				WHEN recheck_requested_at IS NOT NULL THEN 1
				ELSE 2
			END,
			COALESCE(recheck_requested_at, last_checked_at, first_seen_at) ASC,
			id ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list due links: %w", err)
	}
	defer rows.Close()

	var records []domain.LinkRecord
	for rows.Next() {
		rec, scanErr := scanLinkRecord(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan due link: %w", scanErr)
		}
		records = append(records, *rec)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("due link rows: %w", rowsErr)
	}
	return records, nil
}

// ListRecheckCandidates returns URLs last checked before the cutoff that have
// no pending recheck request, oldest first.
func (r *ArchiveRepository) ListRecheckCandidates(ctx context.Context, before time.Time, limit int) ([]string, error) {
	query := `
		SELECT url FROM link_archive
		WHERE last_checked_at < $1 AND recheck_requested_at IS NULL
		ORDER BY last_checked_at ASC, id ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list recheck candidates: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if scanErr := rows.Scan(&u); scanErr != nil {
			return nil, fmt.Errorf("scan recheck candidate: %w", scanErr)
		}
		urls = append(urls, u)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("recheck candidate rows: %w", rowsErr)
	}
	return urls, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLinkRecord(row rowScanner) (*domain.LinkRecord, error) {
	var (
		rec                                   domain.LinkRecord
		status                                sql.NullInt64
		deadSince, lastChecked, recheckAt     sql.NullTime
		waybackAt, snapshotAt, remediatedAt   sql.NullTime
		waybackURL, snapshotKey, remediatedBy sql.NullString
	)

	err := row.Scan(
		&rec.ID, &rec.URL, &rec.URLHash, &rec.Domain, pq.Array(&rec.SourceIDs),
		&status, &rec.IsDead, &deadSince, &rec.ConsecutiveFailures,
		&lastChecked, &recheckAt,
		&waybackURL, &waybackAt, &snapshotKey, &snapshotAt,
		&rec.Remediated, &remediatedAt, &remediatedBy,
		&rec.FirstSeenAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.HTTPStatus = intPtr(status)
	rec.DeadSince = timePtr(deadSince)
	rec.LastCheckedAt = timePtr(lastChecked)
	rec.RecheckRequestedAt = timePtr(recheckAt)
	rec.WaybackURL = stringPtr(waybackURL)
	rec.WaybackCapturedAt = timePtr(waybackAt)
	rec.SnapshotKey = stringPtr(snapshotKey)
	rec.SnapshotCapturedAt = timePtr(snapshotAt)
	rec.RemediatedAt = timePtr(remediatedAt)
	rec.RemediatedBy = stringPtr(remediatedBy)

	return &rec, nil
}
