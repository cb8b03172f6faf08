package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

const queueSelectList = `id, url, source_id, action, queued_at, claimed_at`

// QueueRepository persists the discovery queue.
type QueueRepository struct {
	db *sql.DB
}

// NewQueueRepository creates a queue repository.
func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Ping checks database connectivity.
func (r *QueueRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Enqueue inserts entry unless an entry with the same (url, source_id, action)
// exists. A duplicate returns false with no error.
func (r *QueueRepository) Enqueue(ctx context.Context, entry *domain.QueueEntry) (bool, error) {
	if !entry.Action.IsValid() {
		return false, fmt.Errorf("%w: %q", domain.ErrInvalidAction, entry.Action)
	}
	if entry.QueuedAt.IsZero() {
		entry.QueuedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO link_queue (url, source_id, action, queued_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url, source_id, action) DO NOTHING
		RETURNING id
	`

	var id int64
	scanErr := r.db.QueryRowContext(ctx, query,
		entry.URL,
		entry.SourceID,
		string(entry.Action),
		entry.QueuedAt,
	).Scan(&id)

	if errors.Is(scanErr, sql.ErrNoRows) {
		return false, nil
	}
	if scanErr != nil {
		return false, fmt.Errorf("enqueue link: %w", scanErr)
	}

	entry.ID = id
	return true, nil
}

// Claim marks up to limit unclaimed entries as owned by the caller and returns
// them. Entries claimed before staleBefore are treated as abandoned and
// reclaimed. Concurrent claimers never receive the same entry.
func (r *QueueRepository) Claim(ctx context.Context, limit int, staleBefore time.Time) ([]domain.QueueEntry, error) {
	query := `
		UPDATE link_queue
		SET claimed_at = NOW()
		WHERE id IN (
			SELECT id FROM link_queue
			WHERE claimed_at IS NULL OR claimed_at < $1
			ORDER BY id ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + queueSelectList

	rows, err := r.db.QueryContext(ctx, query, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("claim queue entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.QueueEntry
	for rows.Next() {
		var (
			e       domain.QueueEntry
			action  string
			claimed sql.NullTime
		)
		if scanErr := rows.Scan(&e.ID, &e.URL, &e.SourceID, &action, &e.QueuedAt, &claimed); scanErr != nil {
			return nil, fmt.Errorf("scan queue entry: %w", scanErr)
		}
		e.Action = domain.Action(action)
		e.ClaimedAt = timePtr(claimed)
		entries = append(entries, e)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("queue rows: %w", rowsErr)
	}

	return entries, nil
}

// Complete deletes processed entries and returns how many were removed.
func (r *QueueRepository) Complete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM link_queue WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("complete queue entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get affected rows: %w", err)
	}
	return n, nil
}

// Release clears the claim on an entry so the next drain retries it.
func (r *QueueRepository) Release(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE link_queue SET claimed_at = NULL WHERE id = $1`, id); err != nil {
		return fmt.Errorf("release queue entry %d: %w", id, err)
	}
	return nil
}

// Count returns the number of unresolved entries.
func (r *QueueRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM link_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}
