package localfs

import (
	"context"
	"encoding/binary"
	"strconv"

	bolt "go.etcd.io/bbolt"

	"github.com/codelynx/kronoa/internal/kerrs"
)

// AtomicIncrement implements backend.Store's counter contract (spec
// §4.B, §6): first call for key returns and persists initial,
// subsequent calls return current+1. The bbolt transaction is the
// adapter's single-process linearization point (see doc.go); the
// human-readable decimal value is written into the flat key space
// after the transaction commits so Read(key) keeps working.
func (a *Adapter) AtomicIncrement(ctx context.Context, key string, initial int64) (int64, error) {
	var next int64
	err := a.meta.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket)
		counterKey := []byte("counter:" + key)
		raw := b.Get(counterKey)
		if raw == nil {
			next = initial
		} else {
			next = int64(binary.BigEndian.Uint64(raw)) + 1
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(next))
		return b.Put(counterKey, buf)
	})
	if err != nil {
		return 0, kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: atomic increment %q", key)
	}
	if err := a.Write(ctx, key, []byte(strconv.FormatInt(next, 10))); err != nil {
		return 0, err
	}
	return next, nil
}
