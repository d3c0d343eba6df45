package localfs

import (
	"context"
	"time"

	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/lock"
)

// AcquireLock implements backend.Store by delegating to the generic
// lease state machine in pkg/lock, using this adapter's bbolt-backed
// ETag tracking as the conditional-write capability.
func (a *Adapter) AcquireLock(ctx context.Context, key string, wait, lease time.Duration) (backend.Lock, error) {
	return lock.Acquire(ctx, a, key, "", wait, lease)
}
