// Package domain contains the core models of the link-health service: queue
// entries, archive records, health states and the aggregated dashboard views.
package domain

import "time"

// Action names the work a queue entry asks for.
type Action string

const (
	// ActionDiscover records a URL found in saved content.
	ActionDiscover Action = "discover"
	// ActionRecheck asks the checker to probe a known URL ahead of rotation.
	ActionRecheck Action = "recheck"
)

var validActions = map[Action]bool{
	ActionDiscover: true,
	ActionRecheck:  true,
}

// IsValid reports whether a is a recognised queue action.
func (a Action) IsValid() bool {
	return validActions[a]
}

// QueueEntry is one pending unit of discovery work. Identity is
// (URL, SourceID, Action); entries are deleted once processed.
type QueueEntry struct {
	ID        int64      `json:"id"`
	URL       string     `json:"url"`
	SourceID  string     `json:"source_id"`
	Action    Action     `json:"action"`
	QueuedAt  time.Time  `json:"queued_at"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// HealthState is the field group owned by probe results.
type HealthState struct {
	HTTPStatus          *int       `json:"http_status"`
	IsDead              bool       `json:"is_dead"`
	DeadSince           *time.Time `json:"dead_since"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

// ProbeResult is one outcome reported by the external checker.
type ProbeResult struct {
	URL        string    `json:"url"`
	HTTPStatus *int      `json:"http_status,omitempty"`
	Alive      bool      `json:"alive"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Transition describes one applied probe.
type Transition struct {
	URL    string      `json:"url"`
	Before HealthState `json:"before"`
	After  HealthState `json:"after"`
}

// BecameDead reports a healthy-to-dead transition.
func (t Transition) BecameDead() bool {
	return !t.Before.IsDead && t.After.IsDead
}

// Recovered reports a dead-to-healthy transition.
func (t Transition) Recovered() bool {
	return t.Before.IsDead && !t.After.IsDead
}

// Discovery is a normalized URL ready to be merged into the archive.
type Discovery struct {
	URL      string
	URLHash  string
	Domain   string
	SourceID string
	SeenAt   time.Time
}

// NewDiscovery normalizes rawURL and derives its hash and domain.
func NewDiscovery(rawURL, sourceID string, seenAt time.Time) (Discovery, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return Discovery{}, err
	}
	return Discovery{
		URL:      normalized,
		URLHash:  URLHash(normalized),
		Domain:   ExtractDomain(normalized),
		SourceID: sourceID,
		SeenAt:   seenAt,
	}, nil
}

// LinkRecord is one row of the link archive.
type LinkRecord struct {
	ID        int64    `json:"id"`
	URL       string   `json:"url"`
	URLHash   string   `json:"url_hash"`
	Domain    string   `json:"domain"`
	SourceIDs []string `json:"source_ids"`
	HealthState
	LastCheckedAt      *time.Time `json:"last_checked_at,omitempty"`
	RecheckRequestedAt *time.Time `json:"recheck_requested_at,omitempty"`
	WaybackURL         *string    `json:"wayback_url,omitempty"`
	WaybackCapturedAt  *time.Time `json:"wayback_captured_at,omitempty"`
	SnapshotKey        *string    `json:"snapshot_key,omitempty"`
	SnapshotCapturedAt *time.Time `json:"snapshot_captured_at,omitempty"`
	Remediated         bool       `json:"remediated"`
	RemediatedAt       *time.Time `json:"remediated_at,omitempty"`
	RemediatedBy       *string    `json:"remediated_by,omitempty"`
	FirstSeenAt        time.Time  `json:"first_seen_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ContentChange is emitted by the content host after a save.
type ContentChange struct {
	Text      string    `json:"text"`
	SourceID  string    `binding:"required" json:"source_id"`
	Timestamp time.Time `json:"timestamp"`
}

// DiscoveryResult counts what happened to the URLs of one content change.
type DiscoveryResult struct {
	Found      int  `json:"found"`
	Internal   int  `json:"internal"`
	Enqueued   int  `json:"enqueued"`
	Duplicates int  `json:"duplicates"`
	Failed     int  `json:"failed"`
	Abandoned  int  `json:"abandoned"`
	Deferred   bool `json:"deferred,omitempty"`
	Dropped    bool `json:"dropped,omitempty"`
}

// ProbeReport counts the outcome of a batch of probe results.
type ProbeReport struct {
	Applied   int `json:"applied"`
	Ignored   int `json:"ignored"`
	Failed    int `json:"failed"`
	NewlyDead int `json:"newly_dead"`
	Recovered int `json:"recovered"`
}

// QueueReport counts the outcome of one queue drain.
type QueueReport struct {
	Claimed   int `json:"claimed"`
	Created   int `json:"created"`
	Merged    int `json:"merged"`
	Rechecks  int `json:"rechecks"`
	Discarded int `json:"discarded"`
	Failed    int `json:"failed"`
}

// Summary is the headline aggregate of the archive.
type Summary struct {
	Total       int64 `json:"total"`
	Dead        int64 `json:"dead"`
	Archived    int64 `json:"archived"`
	Snapshotted int64 `json:"snapshotted"`
	Remediated  int64 `json:"remediated"`
	Domains     int64 `json:"domains"`
	Queued      int64 `json:"queued"`
}

// DomainHealth is one row of the per-domain rollup. Unchecked links count as healthy.
type DomainHealth struct {
	Domain  string `json:"domain"`
	Total   int64  `json:"total"`
	Healthy int64  `json:"healthy"`
	Dead    int64  `json:"dead"`
}

// DeadLink is one row of the dead-link report.
type DeadLink struct {
	URL                 string    `json:"url"`
	HTTPStatus          *int      `json:"http_status"`
	DeadSince           time.Time `json:"dead_since"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	WaybackURL          *string   `json:"wayback_url,omitempty"`
	SnapshotKey         *string   `json:"snapshot_key,omitempty"`
	Remediated          bool      `json:"remediated"`
}

// DashboardState tells renderers which view to show.
type DashboardState string

const (
	// DashboardReady means the archive holds rows.
	DashboardReady DashboardState = "ready"
	// DashboardEmpty means the schema exists but nothing was discovered yet.
	DashboardEmpty DashboardState = "empty"
	// DashboardNotInitialized means the schema is missing.
	DashboardNotInitialized DashboardState = "not_initialized"
	// DashboardUnavailable means storage failed.
	DashboardUnavailable DashboardState = "unavailable"
)

// Dashboard bundles the three aggregator views.
type Dashboard struct {
	State       DashboardState `json:"state"`
	Summary     Summary        `json:"summary"`
	Domains     []DomainHealth `json:"domains"`
	DeadLinks   []DeadLink     `json:"dead_links"`
	GeneratedAt time.Time      `json:"generated_at"`
}
