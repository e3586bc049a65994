// Package store persists which videos have already been observed. The
// registry is append-only: a record is written once when a video is first
// seen and never updated or deleted, and uniqueness lives in the store's
// primary key rather than in any caller-side check.
package store

import (
	"context"
	"time"
)

// VideoRecord is one persisted video. Duration and PublishedAt are nil when
// the detail enrichment call failed; the record is still worth keeping
// because the id alone is what deduplication needs.
type VideoRecord struct {
	ID          string
	CreatorID   int64
	CreatorName string
	Title       string
	URL         string
	Duration    *int64
	PublishedAt *time.Time

	// FirstSeenAt is assigned by the store on insert, never by callers.
	FirstSeenAt time.Time
}

// Registry is the durable video store. InsertIfAbsent reports true when the
// record was newly written and false when the id already existed; a
// duplicate insert is an expected no-op, not an error. Both operations are
// safe under concurrent callers because the id constraint is enforced by
// the underlying database.
type Registry interface {
	Exists(ctx context.Context, id string) (bool, error)
	InsertIfAbsent(ctx context.Context, rec VideoRecord) (bool, error)
	Close() error
}
