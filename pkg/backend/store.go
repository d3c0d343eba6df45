// Package backend defines the abstract storage contract (spec §4.B)
// that any blob backend — local filesystem, cloud object store — must
// satisfy. It is the flat key-value foundation every other Kronoa
// component (object store, edition graph, session engine, publish
// pipeline, lock driver) is built on.
package backend

import (
	"context"
	"time"
)

// ListEntry is one result of a prefixed listing. When Delimiter is set
// on the List call, a Prefix entry (Key ending in "/") represents an
// immediate subdirectory and carries no meaningful size/etag.
type ListEntry struct {
	Key    string
	IsDir  bool
	Size   int64
	ETag   string
}

// Lock is a held lease handle returned by AcquireLock. Callers must
// call Release (directly, or via the lock package's driver) on every
// exit path.
type Lock interface {
	// Owner is this holder's unique token.
	Owner() string
	// ExpiresAt is the lease's current expiry, as last observed.
	ExpiresAt() time.Time
	// Renew extends the lease by duration using the monotonic-extension
	// rule from spec §5 (new expiry = max(current, now) + duration).
	// Returns a kerrs KindLockExpired error if the lease was lost.
	Renew(ctx context.Context, duration time.Duration) error
	// Release gives up the lease. Returns KindLockExpired if another
	// owner already holds it (so the caller knows its writes may be
	// unsafe), nil otherwise including if the lock blob is already gone.
	Release(ctx context.Context) error
}

// Store is the flat key-value contract every blob backend satisfies.
// Every path argument is validated via pkg/path before any
// implementation is called; implementations may assume valid input.
type Store interface {
	// Read returns the bytes stored at key, or a KindNotFound error.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores bytes at key, overwriting any existing value and
	// creating intermediate key space as needed.
	Write(ctx context.Context, key string, data []byte) error

	// CreateIfAbsent atomically writes data at key only if no object
	// currently exists there. Returns true if this call created the
	// object, false if one was already present (in which case no
	// write occurred).
	CreateIfAbsent(ctx context.Context, key string, data []byte) (bool, error)

	// Delete removes key, or returns a KindNotFound error if absent.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns entries whose key begins with prefix. If delimiter
	// is non-empty (the only supported value is "/"), the result is
	// the immediate-child set: subdirectories are returned as
	// ListEntry{Key: "<name>/", IsDir: true} and leaf keys as
	// ListEntry{Key: "<name>"}. If delimiter is empty, List returns
	// every leaf key beginning with prefix. In both cases Key is
	// relative to prefix (the prefix itself is stripped).
	List(ctx context.Context, prefix, delimiter string) ([]ListEntry, error)

	// AtomicIncrement implements the counter contract from spec §4.B:
	// the first call for a given key returns initial and stores it;
	// subsequent calls return current+1. Must be linearizable under
	// concurrent callers; may return a KindConcurrentModification
	// error to signal the caller should retry under the spec's bounded
	// backoff. The remote adapter already retries internally via
	// internal/retry.Do; callers in this module do not retry further.
	AtomicIncrement(ctx context.Context, key string, initial int64) (int64, error)

	// AcquireLock acquires an exclusive lease at key, waiting up to
	// wait for the attempt before failing with a KindLockTimeout error.
	// The returned Lock's lease lasts lease, renewable via Lock.Renew.
	AcquireLock(ctx context.Context, key string, wait, lease time.Duration) (Lock, error)
}

// ConditionalWriter is an optional capability (spec §4.B: "Optional
// but strongly recommended") some backends expose: an If-Match /
// If-None-Match conditional write used by the lock driver and by
// AtomicIncrement implementations that lack a native counter. Backends
// that implement Store.AtomicIncrement and Store.AcquireLock directly
// (e.g. via a local transactional side-database) need not implement
// this.
type ConditionalWriter interface {
	// WriteIfMatch writes data at key only if the backend's current
	// ETag for key equals etag (or, when etag == "", only if key is
	// absent — the If-None-Match "*" case). Returns the new ETag on
	// success, or a KindConcurrentModification error if the
	// precondition failed.
	WriteIfMatch(ctx context.Context, key string, etag string, data []byte) (newETag string, err error)

	// StatETag returns the current ETag for key, or KindNotFound.
	StatETag(ctx context.Context, key string) (etag string, err error)
}
