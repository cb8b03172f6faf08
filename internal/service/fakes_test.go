package service_test

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
	"github.com/jonesrussell/north-cloud/link-health/internal/health"
)

type queueKey struct {
	url, source string
	action      domain.Action
}

// memQueue mirrors the insert-if-absent semantics of the link_queue table.
type memQueue struct {
	mu       sync.Mutex
	nextID   int64
	entries  map[queueKey]*domain.QueueEntry
	failWith error
	released []int64
}

func newMemQueue() *memQueue {
	return &memQueue{entries: make(map[queueKey]*domain.QueueEntry)}
}

func (q *memQueue) Enqueue(_ context.Context, entry *domain.QueueEntry) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.failWith != nil {
		return false, q.failWith
	}
	if !entry.Action.IsValid() {
		return false, domain.ErrInvalidAction
	}
	key := queueKey{entry.URL, entry.SourceID, entry.Action}
	if _, ok := q.entries[key]; ok {
		return false, nil
	}
	q.nextID++
	stored := *entry
	stored.ID = q.nextID
	q.entries[key] = &stored
	entry.ID = stored.ID
	return true, nil
}

func (q *memQueue) Claim(_ context.Context, limit int, staleBefore time.Time) ([]domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	all := make([]*domain.QueueEntry, 0, len(q.entries))
	for _, e := range q.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	now := time.Now().UTC()
	var claimed []domain.QueueEntry
	for _, e := range all {
		if len(claimed) >= limit {
			break
		}
		if e.ClaimedAt != nil && !e.ClaimedAt.Before(staleBefore) {
			continue
		}
		at := now
		e.ClaimedAt = &at
		claimed = append(claimed, *e)
	}
	return claimed, nil
}

func (q *memQueue) Complete(_ context.Context, ids []int64) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int64
	for key, e := range q.entries {
		if slices.Contains(ids, e.ID) {
			delete(q.entries, key)
			n++
		}
	}
	return n, nil
}

func (q *memQueue) Release(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.released = append(q.released, id)
	for _, e := range q.entries {
		if e.ID == id {
			e.ClaimedAt = nil
		}
	}
	return nil
}

func (q *memQueue) Count(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.entries)), nil
}

func (q *memQueue) list() []domain.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.QueueEntry, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// memArchive applies the same field-group rules as the link_archive repository.
type memArchive struct {
	mu         sync.Mutex
	nextID     int64
	rows       map[string]*domain.LinkRecord
	failRecord error
	failProbe  error
}

func newMemArchive() *memArchive {
	return &memArchive{rows: make(map[string]*domain.LinkRecord)}
}

func (a *memArchive) RecordDiscovery(_ context.Context, d domain.Discovery) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failRecord != nil {
		return false, a.failRecord
	}
	if row, ok := a.rows[d.URL]; ok {
		if !slices.Contains(row.SourceIDs, d.SourceID) {
			row.SourceIDs = append(row.SourceIDs, d.SourceID)
		}
		if row.IsDead && row.Remediated && row.RemediatedAt != nil && row.RemediatedAt.Before(*row.DeadSince) {
			row.Remediated, row.RemediatedAt, row.RemediatedBy = false, nil, nil
		}
		return false, nil
	}
	a.nextID++
	a.rows[d.URL] = &domain.LinkRecord{
		ID: a.nextID, URL: d.URL, URLHash: d.URLHash, Domain: d.Domain,
		SourceIDs: []string{d.SourceID}, FirstSeenAt: d.SeenAt, UpdatedAt: d.SeenAt,
	}
	return true, nil
}

func (a *memArchive) ApplyProbe(_ context.Context, url string, probe domain.ProbeResult, policy health.Policy) (domain.Transition, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failProbe != nil {
		return domain.Transition{}, a.failProbe
	}
	row, ok := a.rows[url]
	if !ok {
		return domain.Transition{}, domain.ErrNotFound
	}
	before := row.HealthState
	row.HealthState = policy.Evaluate(before, probe)
	checked := probe.CheckedAt
	row.LastCheckedAt = &checked
	row.RecheckRequestedAt = nil
	return domain.Transition{URL: url, Before: before, After: row.HealthState}, nil
}

func (a *memArchive) update(url string, fn func(*domain.LinkRecord)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	row, ok := a.rows[url]
	if !ok {
		return domain.ErrNotFound
	}
	fn(row)
	return nil
}

func (a *memArchive) RequestRecheck(_ context.Context, url string, at time.Time) error {
	return a.update(url, func(r *domain.LinkRecord) { r.RecheckRequestedAt = &at })
}

func (a *memArchive) SetWayback(_ context.Context, url, waybackURL string, capturedAt time.Time) error {
	return a.update(url, func(r *domain.LinkRecord) {
		r.WaybackURL = &waybackURL
		r.WaybackCapturedAt = &capturedAt
	})
}

func (a *memArchive) SetSnapshot(_ context.Context, url, key string, capturedAt time.Time) error {
	return a.update(url, func(r *domain.LinkRecord) {
		r.SnapshotKey = &key
		r.SnapshotCapturedAt = &capturedAt
	})
}

func (a *memArchive) MarkRemediated(_ context.Context, url, by string, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	row, ok := a.rows[url]
	if !ok {
		return domain.ErrNotFound
	}
	if !row.IsDead {
		return domain.ErrNotDead
	}
	row.Remediated, row.RemediatedAt, row.RemediatedBy = true, &at, &by
	return nil
}

func (a *memArchive) Get(_ context.Context, url string) (*domain.LinkRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	row, ok := a.rows[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (a *memArchive) ListDue(_ context.Context, before time.Time, limit int) ([]domain.LinkRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []domain.LinkRecord
	for _, r := range a.rows {
		if r.LastCheckedAt == nil || r.RecheckRequestedAt != nil || r.LastCheckedAt.Before(before) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *memArchive) ListRecheckCandidates(_ context.Context, before time.Time, limit int) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []string
	for _, r := range a.rows {
		if r.LastCheckedAt != nil && r.LastCheckedAt.Before(before) && r.RecheckRequestedAt == nil {
			out = append(out, r.URL)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *memArchive) row(url string) domain.LinkRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *a.rows[url]
}
