package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/lock"
)

// Adapter implements backend.Store over an S3-compatible bucket via a
// minio-go/v7 client.
type Adapter struct {
	client *minio.Client
	bucket string
	root   string // key prefix all operations are scoped under
}

// New wraps an already-configured minio client. root is prefixed onto
// every key (the "configured root" of spec §6); pass "" for none.
func New(client *minio.Client, bucket, root string) *Adapter {
	root = strings.Trim(root, "/")
	return &Adapter{client: client, bucket: bucket, root: root}
}

func (a *Adapter) fullKey(key string) string {
	if a.root == "" {
		return key
	}
	if key == "" {
		return a.root + "/"
	}
	return a.root + "/" + key
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.Code == "NotFound" || resp.StatusCode == 404
	}
	return false
}

// Read implements backend.Store.
func (a *Adapter) Read(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, a.fullKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, kerrs.Wrapf(kerrs.KindStorageError, err, "remote: get %q", key)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, kerrs.NotFound(key)
		}
		return nil, kerrs.Wrapf(kerrs.KindStorageError, err, "remote: read %q", key)
	}
	// minio-go surfaces a missing object as an error on first Read,
	// not on GetObject itself.
	if _, statErr := obj.Stat(); statErr != nil && isNoSuchKey(statErr) {
		return nil, kerrs.NotFound(key)
	}
	return data, nil
}

// Write implements backend.Store.
func (a *Adapter) Write(ctx context.Context, key string, data []byte) error {
	_, err := a.client.PutObject(ctx, a.bucket, a.fullKey(key), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return kerrs.Wrapf(kerrs.KindStorageError, err, "remote: put %q", key)
	}
	return nil
}

// CreateIfAbsent implements backend.Store via a stat-then-put sequence
// (see doc.go for the consistency caveat).
func (a *Adapter) CreateIfAbsent(ctx context.Context, key string, data []byte) (bool, error) {
	exists, err := a.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := a.Write(ctx, key, data); err != nil {
		return false, err
	}
	return true, nil
}

// Delete implements backend.Store.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	exists, err := a.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return kerrs.NotFound(key)
	}
	if err := a.client.RemoveObject(ctx, a.bucket, a.fullKey(key), minio.RemoveObjectOptions{}); err != nil {
		return kerrs.Wrapf(kerrs.KindStorageError, err, "remote: delete %q", key)
	}
	return nil
}

// Exists implements backend.Store.
func (a *Adapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.StatObject(ctx, a.bucket, a.fullKey(key), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, kerrs.Wrapf(kerrs.KindStorageError, err, "remote: stat %q", key)
	}
	return true, nil
}

// List implements backend.Store using minio's paginated prefix
// listing; continuation is handled internally by the SDK's channel,
// and results are sorted before returning (spec §4.D).
func (a *Adapter) List(ctx context.Context, prefix, delimiter string) ([]backend.ListEntry, error) {
	fullPrefix := a.fullKey(prefix)
	if prefix != "" && !strings.HasSuffix(fullPrefix, "/") {
		fullPrefix += "/"
	}

	opts := minio.ListObjectsOptions{
		Prefix:    fullPrefix,
		Recursive: delimiter != "/",
	}

	var out []backend.ListEntry
	for obj := range a.client.ListObjects(ctx, a.bucket, opts) {
		if obj.Err != nil {
			return nil, kerrs.Wrapf(kerrs.KindStorageError, obj.Err, "remote: list %q", prefix)
		}
		rel := strings.TrimPrefix(obj.Key, fullPrefix)
		if rel == "" {
			continue
		}
		if strings.HasSuffix(obj.Key, "/") {
			out = append(out, backend.ListEntry{Key: rel, IsDir: true})
			continue
		}
		out = append(out, backend.ListEntry{Key: rel, Size: obj.Size, ETag: obj.ETag})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// AtomicIncrement implements backend.Store's counter contract per
// spec §4.D: GET-with-ETag then PUT-with-If-Match (here: stat-then-put,
// see doc.go), retrying with the spec's fixed backoff on contention.
// The counter is not linearizable across concurrent writers; the
// edition-id allocation in this codebase (edition.NextID, called by
// session checkout and initialisation) does not run under the admin
// lease.
func (a *Adapter) AtomicIncrement(ctx context.Context, key string, initial int64) (int64, error) {
	var result int64
	err := retryDo(ctx, func() error {
		data, err := a.Read(ctx, key)
		if err != nil {
			if kerrs.Of(err) != kerrs.KindNotFound {
				return err
			}
			created, cErr := a.CreateIfAbsent(ctx, key, []byte(strconv.FormatInt(initial, 10)))
			if cErr != nil {
				return cErr
			}
			if !created {
				return kerrs.ConcurrentModification(key)
			}
			result = initial
			return nil
		}
		current, parseErr := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if parseErr != nil {
			return kerrs.Wrapf(kerrs.KindIntegrityError, parseErr, "remote: counter %q is not an integer", key)
		}
		next := current + 1
		etagBefore, statErr := a.StatETag(ctx, key)
		if statErr != nil {
			return statErr
		}
		if _, err := a.WriteIfMatch(ctx, key, etagBefore, []byte(strconv.FormatInt(next, 10))); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

// StatETag implements backend.ConditionalWriter using the object's
// real S3 ETag.
func (a *Adapter) StatETag(ctx context.Context, key string) (string, error) {
	info, err := a.client.StatObject(ctx, a.bucket, a.fullKey(key), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return "", kerrs.NotFound(key)
		}
		return "", kerrs.Wrapf(kerrs.KindStorageError, err, "remote: stat etag %q", key)
	}
	return info.ETag, nil
}

// WriteIfMatch implements backend.ConditionalWriter. See doc.go: this
// is a stat-then-put sequence, not a true conditional PUT, because
// S3-compatible object stores do not uniformly support If-Match on
// PUT. The etag is re-verified immediately before the write to
// narrow, not eliminate, the race.
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

// AcquireLock implements backend.Store by delegating to the generic
// lease state machine in pkg/lock.
func (a *Adapter) AcquireLock(ctx context.Context, key string, wait, lease time.Duration) (backend.Lock, error) {
	return lock.Acquire(ctx, a, key, "", wait, lease)
}

var _ backend.Store = (*Adapter)(nil)
var _ backend.ConditionalWriter = (*Adapter)(nil)
