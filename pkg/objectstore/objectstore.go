package objectstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/internal/kronolog"
	"github.com/codelynx/kronoa/internal/kronometrics"
	"github.com/codelynx/kronoa/pkg/backend"
)

var logger = kronolog.WithComponent("objectstore")

// Store is the content-addressed object layer over a backend.Store.
type Store struct {
	backend backend.Store
}

// New returns an object store rooted at the backend's "objects/" prefix.
func New(be backend.Store) *Store {
	return &Store{backend: be}
}

// HashHex returns the lowercase hex SHA-256 digest of data.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func datKey(hex string) string {
	return fmt.Sprintf("objects/%s/%s.dat", hex[:2], hex)
}

func refKey(hex string) string {
	return fmt.Sprintf("objects/%s/%s.ref", hex[:2], hex)
}

// DatKey exposes the sharded key an object's bytes live at, for
// callers (edition graph, GC) that need to check existence directly.
func DatKey(hexDigest string) string { return datKey(hexDigest) }

// RefKey exposes the sharded key an object's reference sidecar lives
// at.
func RefKey(hexDigest string) string { return refKey(hexDigest) }

// Put computes the SHA-256 of data and stores it if not already
// present (spec §4.E, §8 "Round-trip / dedup"): a second Put of
// identical bytes is a no-op and returns the same hex.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	digest := HashHex(data)
	key := datKey(digest)
	exists, err := s.backend.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		kronometrics.DedupHits.Inc()
		return digest, nil
	}
	if err := s.backend.Write(ctx, key, data); err != nil {
		return "", err
	}
	logger.Debug().Str("hash", digest).Int("bytes", len(data)).Msg("object written")
	return digest, nil
}

// Get returns the bytes for hexDigest, or KindIntegrityError if the
// backend's promise that this hash exists is broken.
func (s *Store) Get(ctx context.Context, hexDigest string) ([]byte, error) {
	data, err := s.backend.Read(ctx, datKey(hexDigest))
	if err != nil {
		if kerrs.Of(err) == kerrs.KindNotFound {
			return nil, kerrs.IntegrityError("object "+hexDigest, "missing")
		}
		return nil, err
	}
	return data, nil
}

// Exists reports whether hexDigest's blob is present, used by callers
// that must verify a resolved mapping's target actually exists (spec
// §4.E "Integrity check").
func (s *Store) Exists(ctx context.Context, hexDigest string) (bool, error) {
	return s.backend.Exists(ctx, datKey(hexDigest))
}

// AppendReference unions edition into hexDigest's reference sidecar
// (spec §4.E): read (absent treated as empty), union, rewrite sorted.
// Must only be called while holding the admin lease (spec §9).
func (s *Store) AppendReference(ctx context.Context, hexDigest string, edition int64) error {
	key := refKey(hexDigest)
	ids, err := s.readRefs(ctx, key)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == edition {
			return nil // already present
		}
	}
	ids = append(ids, edition)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return s.writeRefs(ctx, key, ids)
}

// References returns the sorted edition ids recorded as having ever
// staged hexDigest, or an empty slice if no .ref sidecar exists yet.
func (s *Store) References(ctx context.Context, hexDigest string) ([]int64, error) {
	return s.readRefs(ctx, refKey(hexDigest))
}

func (s *Store) readRefs(ctx context.Context, key string) ([]int64, error) {
	data, err := s.backend.Read(ctx, key)
	if err != nil {
		if kerrs.Of(err) == kerrs.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	var ids []int64
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, kerrs.Wrapf(kerrs.KindIntegrityError, err, "objectstore: corrupt ref entry %q in %q", line, key)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) writeRefs(ctx context.Context, key string, ids []int64) error {
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = strconv.FormatInt(id, 10)
	}
	return s.backend.Write(ctx, key, []byte(strings.Join(lines, "\n")))
}
