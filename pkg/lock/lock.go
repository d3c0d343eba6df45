// Package lock implements the leased mutual-exclusion primitive
// (component J, spec §4.J, §5) that the publish pipeline and garbage
// collector use to serialize their admin operations. The state
// machine is implemented once here, against any backend that can
// create-if-absent and conditionally update a blob
// (backend.ConditionalWriter); each concrete backend.Store adapter
// wires its AcquireLock method to this package rather than
// reimplementing the lifecycle.
//
// Grounded on the lease/expiry bookkeeping shape of
// cuemby-warren/pkg/manager/token.go's JoinToken, generalized from an
// in-memory map to a backend-resident blob guarded by conditional
// writes.
package lock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/internal/kronolog"
	"github.com/codelynx/kronoa/internal/kronometrics"
	"github.com/codelynx/kronoa/pkg/backend"
)

var logger = kronolog.WithComponent("lock")

// ConditionalStore is the capability set the lock driver needs:
// CreateIfAbsent/Read/Delete from backend.Store plus the ETag-based
// conditional write from backend.ConditionalWriter.
type ConditionalStore interface {
	backend.Store
	backend.ConditionalWriter
}

// record is the JSON body of the lock blob (spec §3, §6).
type record struct {
	Owner      string    `json:"owner"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Lease is a held lock handle implementing backend.Lock.
type Lease struct {
	store ConditionalStore
	key   string
	owner string

	etag      string
	expiresAt time.Time
}

// NewOwnerToken returns a random, process-unique owner token.
func NewOwnerToken() string {
	return uuid.NewString()
}

// Acquire implements the acquire state transition from spec §5:
// loop until deadline — if the blob is absent, attempt
// create_if_absent; if present and expired, delete and retry; else
// sleep 100ms and retry.
func Acquire(ctx context.Context, store ConditionalStore, key, owner string, wait, lease time.Duration) (*Lease, error) {
	if owner == "" {
		owner = NewOwnerToken()
	}
	deadline := time.Now().Add(wait)
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		now := time.Now()
		rec := record{Owner: owner, AcquiredAt: now, ExpiresAt: now.Add(lease)}
		body, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}

		created, err := store.CreateIfAbsent(ctx, key, body)
		if err != nil {
			return nil, kerrs.Wrapf(kerrs.KindStorageError, err, "lock: acquire %q", key)
		}
		if created {
			etag, err := store.StatETag(ctx, key)
			if err != nil {
				return nil, kerrs.Wrapf(kerrs.KindStorageError, err, "lock: stat etag after acquire %q", key)
			}
			logger.Debug().Str("key", key).Str("owner", owner).Msg("lock acquired")
			return &Lease{store: store, key: key, owner: owner, etag: etag, expiresAt: rec.ExpiresAt}, nil
		}

		existing, err := readRecord(ctx, store, key)
		if err != nil && kerrs.Of(err) != kerrs.KindNotFound {
			return nil, err
		}
		if err == nil && existing.ExpiresAt.Before(now) {
			// Steal: the holder's lease lapsed without renewal.
			if delErr := store.Delete(ctx, key); delErr != nil && kerrs.Of(delErr) != kerrs.KindNotFound {
				return nil, delErr
			}
			kronometrics.LeaseStolen.Inc()
			logger.Warn().Str("key", key).Str("previousOwner", existing.Owner).Msg("stole expired lock")
			continue
		}

		if time.Now().After(deadline) {
			return nil, kerrs.New(kerrs.KindLockTimeout, "timed out waiting for lock "+key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func readRecord(ctx context.Context, store backend.Store, key string) (*record, error) {
	data, err := store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, kerrs.Wrapf(kerrs.KindIntegrityError, err, "lock: corrupt lock blob %q", key)
	}
	return &rec, nil
}

// Owner implements backend.Lock.
func (l *Lease) Owner() string { return l.owner }

// ExpiresAt implements backend.Lock.
func (l *Lease) ExpiresAt() time.Time { return l.expiresAt }

// Renew implements the renew transition from spec §5: conditionally
// update with If-Match on the observed ETag; the new expiresAt is
// max(current expiresAt, now) + duration (monotonic extension).
func (l *Lease) Renew(ctx context.Context, duration time.Duration) error {
	existing, err := readRecord(ctx, l.store, l.key)
	if err != nil {
		return kerrs.Wrapf(kerrs.KindLockExpired, err, "lock: renew %q: lost lock blob", l.key)
	}
	if existing.Owner != l.owner {
		return kerrs.New(kerrs.KindLockExpired, "lock: renew "+l.key+": owner changed")
	}

	now := time.Now()
	newExpiry := existing.ExpiresAt
	if now.After(newExpiry) {
		newExpiry = now
	}
	newExpiry = newExpiry.Add(duration)

	rec := record{Owner: l.owner, AcquiredAt: existing.AcquiredAt, ExpiresAt: newExpiry}
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	newEtag, err := l.store.WriteIfMatch(ctx, l.key, l.etag, body)
	if err != nil {
		return kerrs.Wrapf(kerrs.KindLockExpired, err, "lock: renew %q: conditional update failed", l.key)
	}
	l.etag = newEtag
	l.expiresAt = newExpiry
	logger.Debug().Str("key", l.key).Str("owner", l.owner).Time("expiresAt", newExpiry).Msg("lock renewed")
	return nil
}

// Release implements the release transition from spec §5: read the
// blob; if owner differs, KindLockExpired; else delete.
func (l *Lease) Release(ctx context.Context) error {
	existing, err := readRecord(ctx, l.store, l.key)
	if err != nil {
		if kerrs.Of(err) == kerrs.KindNotFound {
			return nil
		}
		return err
	}
	if existing.Owner != l.owner {
		return kerrs.New(kerrs.KindLockExpired, "lock: release "+l.key+": owner changed")
	}
	if err := l.store.Delete(ctx, l.key); err != nil && kerrs.Of(err) != kerrs.KindNotFound {
		return err
	}
	logger.Debug().Str("key", l.key).Str("owner", l.owner).Msg("lock released")
	return nil
}
