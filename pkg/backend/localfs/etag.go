package localfs

import (
	"context"
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/codelynx/kronoa/internal/kerrs"
)

// bumpETag advances the version counter tracked for key and returns
// its new value as a string. Called after every successful Write,
// CreateIfAbsent, and Delete so StatETag/WriteIfMatch have something
// to condition on, giving the adapter a backend.ConditionalWriter
// capability equivalent to the cloud adapter's native ETags.
func (a *Adapter) bumpETag(key string) (string, error) {
	var next uint64
	err := a.meta.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket)
		etagKey := []byte("etag:" + key)
		raw := b.Get(etagKey)
		if raw != nil {
			next = binary.BigEndian.Uint64(raw) + 1
		} else {
			next = 1
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, next)
		return b.Put(etagKey, buf)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", next), nil
}

func (a *Adapter) clearETag(key string) error {
	return a.meta.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Delete([]byte("etag:" + key))
	})
}

// StatETag implements backend.ConditionalWriter.
func (a *Adapter) StatETag(ctx context.Context, key string) (string, error) {
	exists, err := a.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", kerrs.NotFound(key)
	}
	var etag string
	err = a.meta.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get([]byte("etag:" + key))
		if raw != nil {
			etag = fmt.Sprintf("%d", binary.BigEndian.Uint64(raw))
		} else {
			etag = "0"
		}
		return nil
	})
	return etag, err
}

// WriteIfMatch implements backend.ConditionalWriter. When etag == "",
// the write is only permitted if key is currently absent (the
// If-None-Match "*" case used for lock acquisition after a steal).
func (a *Adapter) WriteIfMatch(ctx context.Context, key, etag string, data []byte) (string, error) {
	exists, err := a.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if etag == "" {
		if exists {
			return "", kerrs.ConcurrentModification(key)
		}
	} else {
		if !exists {
			return "", kerrs.ConcurrentModification(key)
		}
		current, err := a.StatETag(ctx, key)
		if err != nil {
			return "", err
		}
		if current != etag {
			return "", kerrs.ConcurrentModification(key)
		}
	}
	if err := a.Write(ctx, key, data); err != nil {
		return "", err
	}
	return a.StatETag(ctx, key)
}
