// Package tokenstore persists OAuth token records keyed by link token.
//
// Two backends implement Store: MemoryStore keeps records in process and is
// bounded in size, RedisStore keeps them in Redis with native expiry. Both
// hide records whose expiry has passed, even if they are still physically
// present.
package tokenstore

import (
	"context"
	"time"
)

// Record is the credential pair stored for one link token.
//
// The Redis backend keeps times at millisecond precision in UTC, so a record
// read back from it equals the written one with ExpiresAt and CreatedAt
// truncated to the millisecond.
type Record struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is zero when the provider did not report an expiry.
	ExpiresAt time.Time
	CreatedAt time.Time
}

// HasExpiry reports whether the record carries an expiry time.
func (r *Record) HasExpiry() bool {
	return !r.ExpiresAt.IsZero()
}

// ExpiredAt reports whether the record is logically expired at now.
func (r *Record) ExpiredAt(now time.Time) bool {
	return r.HasExpiry() && now.After(r.ExpiresAt)
}

// Store is the contract shared by all backends.
type Store interface {
	// Get returns nil when the handle is unknown or its record has expired.
	Get(ctx context.Context, handle string) (*Record, error)
	// Set writes or replaces the record for handle.
	Set(ctx context.Context, handle string, rec *Record) error
	// Delete is idempotent.
	Delete(ctx context.Context, handle string) error
	Has(ctx context.Context, handle string) (bool, error)
	// ClearExpired removes logically expired records and returns how many were removed.
	ClearExpired(ctx context.Context) (int, error)
	Close() error
}
