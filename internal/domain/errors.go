package domain

import "errors"

// Sentinel errors shared by repositories, services and handlers.
var (
	// ErrNotFound means no archive row exists for the URL. Updates never create rows.
	ErrNotFound = errors.New("link not found")
	// ErrNotDead is returned when remediating a link that is currently alive.
	ErrNotDead = errors.New("link is not dead")
	// ErrSchemaMissing means the link tables have not been provisioned.
	ErrSchemaMissing = errors.New("link health schema not initialized")
	// ErrSnapshotsDisabled means no object storage is configured.
	ErrSnapshotsDisabled = errors.New("snapshot storage not configured")
	// ErrInvalidAction rejects queue actions other than discover and recheck.
	ErrInvalidAction = errors.New("invalid queue action")
	// ErrInvalidURL rejects URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid url")
)
