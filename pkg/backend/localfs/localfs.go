package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/pkg/backend"
)

var metaBucket = []byte("meta")

// Adapter implements backend.Store over a local directory tree.
type Adapter struct {
	root string
	meta *bolt.DB
}

// New opens (creating if absent) a localfs adapter rooted at root.
func New(root string) (*Adapter, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: create root %q: %w", root, err)
	}
	db, err := bolt.Open(filepath.Join(root, ".kronoa-meta.db"), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("localfs: open meta db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("localfs: init meta db: %w", err)
	}
	return &Adapter{root: root, meta: db}, nil
}

// Close releases the adapter's meta database handle.
func (a *Adapter) Close() error {
	return a.meta.Close()
}

func (a *Adapter) abs(key string) string {
	return filepath.Join(a.root, filepath.FromSlash(key))
}

// Read implements backend.Store.
func (a *Adapter) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(a.abs(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, kerrs.NotFound(key)
		}
		return nil, kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: read %q", key)
	}
	return data, nil
}

// Write implements backend.Store.
func (a *Adapter) Write(ctx context.Context, key string, data []byte) error {
	p := a.abs(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: mkdir for %q", key)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: write %q", key)
	}
	if _, err := a.bumpETag(key); err != nil {
		return kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: bump etag for %q", key)
	}
	return nil
}

// CreateIfAbsent implements backend.Store using open-with-exclusive-create.
func (a *Adapter) CreateIfAbsent(ctx context.Context, key string, data []byte) (bool, error) {
	p := a.abs(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return false, kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: mkdir for %q", key)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: create %q", key)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return false, kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: write %q", key)
	}
	if _, err := a.bumpETag(key); err != nil {
		return false, kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: bump etag for %q", key)
	}
	return true, nil
}

// Delete implements backend.Store.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	if err := os.Remove(a.abs(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return kerrs.NotFound(key)
		}
		return kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: delete %q", key)
	}
	if err := a.clearETag(key); err != nil {
		return kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: clear etag for %q", key)
	}
	return nil
}

// Exists implements backend.Store.
func (a *Adapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(a.abs(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: stat %q", key)
	}
	return true, nil
}

// List implements backend.Store. With delimiter == "/" it lists the
// immediate children of prefix; otherwise it walks the whole subtree
// and returns every leaf key.
func (a *Adapter) List(ctx context.Context, prefix, delimiter string) ([]backend.ListEntry, error) {
	dir := a.abs(strings.TrimSuffix(prefix, "/"))

	if delimiter == "/" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: readdir %q", prefix)
		}
		var out []backend.ListEntry
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".kronoa-meta.db") {
				continue
			}
			if e.IsDir() {
				out = append(out, backend.ListEntry{Key: e.Name() + "/", IsDir: true})
				continue
			}
			info, err := e.Info()
			var size int64
			if err == nil {
				size = info.Size()
			}
			out = append(out, backend.ListEntry{Key: e.Name(), Size: size})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return out, nil
	}

	var out []backend.ListEntry
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.Contains(key, ".kronoa-meta.db") {
			return nil
		}
		key = strings.TrimPrefix(key, strings.TrimSuffix(prefix, "/"))
		key = strings.TrimPrefix(key, "/")
		info, err := d.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		out = append(out, backend.ListEntry{Key: key, Size: size})
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, kerrs.Wrapf(kerrs.KindStorageError, err, "localfs: walk %q", prefix)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

var _ io.Closer = (*Adapter)(nil)
