package edition

import (
	"context"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/objectstore"
)

// GenesisID is the first edition id ever allocated, per spec §3.
const GenesisID int64 = 10000

// counterKey is the backend counter edition ids are allocated from
// (spec §6: "editions/.head stores the largest id issued so far").
const counterKey = "editions/.head"

const (
	originFile    = ".origin"
	flattenedFile = ".flattened"
)

// Status classifies the outcome of resolving a path within an edition.
type Status int

const (
	// StatusNotFound means no ancestor in the chain ever mapped path.
	StatusNotFound Status = iota
	// StatusExists means path resolves to a live object.
	StatusExists
	// StatusDeleted means an ancestor tombstoned path.
	StatusDeleted
)

// Resolution is the outcome of Resolve.
type Resolution struct {
	Status  Status
	Hash    string // set when Status == StatusExists
	Size    int64  // set when Status == StatusExists
	At      int64  // the edition id the mapping (or tombstone) was found at
}

func mappingKey(editionID int64, p string) string {
	return "editions/" + strconv.FormatInt(editionID, 10) + "/" + p
}

func originKey(editionID int64) string {
	return "editions/" + strconv.FormatInt(editionID, 10) + "/" + originFile
}

func flattenedKey(editionID int64) string {
	return "editions/" + strconv.FormatInt(editionID, 10) + "/" + flattenedFile
}

// Origin returns the parent edition id recorded for editionID, and
// false if editionID is a forest root (no .origin file).
func Origin(ctx context.Context, be backend.Store, editionID int64) (int64, bool, error) {
	data, err := be.Read(ctx, originKey(editionID))
	if err != nil {
		if kerrs.Of(err) == kerrs.KindNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	parent, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false, kerrs.Wrapf(kerrs.KindIntegrityError, err, "edition %d: corrupt .origin", editionID)
	}
	return parent, true, nil
}

// IsFlattened reports whether editionID carries a .flattened marker,
// which stops ancestry walks from crossing it.
func IsFlattened(ctx context.Context, be backend.Store, editionID int64) (bool, error) {
	return be.Exists(ctx, flattenedKey(editionID))
}

// SetOrigin records parentID as editionID's origin. Called once, at
// edition-creation time; editions are otherwise immutable.
func SetOrigin(ctx context.Context, be backend.Store, editionID, parentID int64) error {
	_, err := be.CreateIfAbsent(ctx, originKey(editionID), []byte(strconv.FormatInt(parentID, 10)))
	return err
}

// NextID atomically allocates the next edition id after the highest
// one ever handed out, seeding the counter at GenesisID if this is the
// first allocation.
func NextID(ctx context.Context, be backend.Store) (int64, error) {
	return be.AtomicIncrement(ctx, counterKey, GenesisID)
}

// PutMapping writes path's mapping within editionID to point at
// hexDigest. Overwriting an existing mapping is only valid while
// editionID is still open for editing (enforced by pkg/session, not
// here).
func PutMapping(ctx context.Context, be backend.Store, editionID int64, p, hexDigest string) error {
	return be.Write(ctx, mappingKey(editionID, p), []byte("sha256:"+hexDigest))
}

// PutTombstone records path as deleted within editionID.
func PutTombstone(ctx context.Context, be backend.Store, editionID int64, p string) error {
	return be.Write(ctx, mappingKey(editionID, p), []byte("deleted"))
}

// DeleteMapping removes any mapping editionID holds for path outright
// (used when discarding a pending change within an open edition,
// rather than tombstoning it).
func DeleteMapping(ctx context.Context, be backend.Store, editionID int64, p string) error {
	err := be.Delete(ctx, mappingKey(editionID, p))
	if kerrs.Of(err) == kerrs.KindNotFound {
		return nil
	}
	return err
}

// Resolve walks editionID's ancestry chain looking for a mapping (or
// tombstone) for path, per spec §4.F. A mapping that resolves to an
// object whose bytes are actually missing is reported as
// KindIntegrityError rather than silently treated as not-found.
func Resolve(ctx context.Context, be backend.Store, objs *objectstore.Store, editionID int64, p string) (*Resolution, error) {
	cur := editionID
	for {
		data, err := be.Read(ctx, mappingKey(cur, p))
		if err != nil && kerrs.Of(err) != kerrs.KindNotFound {
			return nil, err
		}
		if err == nil {
			mapping := string(data)
			if mapping == "deleted" {
				return &Resolution{Status: StatusDeleted, At: cur}, nil
			}
			hexDigest, ok := strings.CutPrefix(mapping, "sha256:")
			if !ok {
				return nil, kerrs.New(kerrs.KindIntegrityError, "edition "+strconv.FormatInt(cur, 10)+": malformed mapping for "+p)
			}
			size, exists, statErr := objs.Stat(ctx, hexDigest)
			if statErr != nil {
				return nil, statErr
			}
			if !exists {
				return nil, kerrs.IntegrityError("object "+hexDigest+" referenced by "+p+"@"+strconv.FormatInt(cur, 10), "missing")
			}
			return &Resolution{Status: StatusExists, Hash: hexDigest, Size: size, At: cur}, nil
		}

		// No mapping at cur. Stop if cur is a flatten boundary or a
		// forest root; otherwise step to its parent.
		flattened, ferr := IsFlattened(ctx, be, cur)
		if ferr != nil {
			return nil, ferr
		}
		if flattened {
			return &Resolution{Status: StatusNotFound, At: cur}, nil
		}
		parent, hasParent, oerr := Origin(ctx, be, cur)
		if oerr != nil {
			return nil, oerr
		}
		if !hasParent {
			return &Resolution{Status: StatusNotFound, At: cur}, nil
		}
		cur = parent
	}
}

// Entry is one listed child of a directory within an edition.
type Entry struct {
	Name  string
	IsDir bool
}

// mergeChildren walks editionID's ancestry (stopping at the first
// flatten boundary, inclusive) merging the immediate children of
// directory by name: the first observation wins (child shadows
// parent), including tombstones. Shared by List (which then drops
// tombstones from the public result) and flattenWalk (which must
// carry tombstones verbatim into the flattened edition, per spec §9:
// "Flatten must therefore include tombstones verbatim; omitting them
// would resurrect deleted files").
func mergeChildren(ctx context.Context, be backend.Store, editionID int64, directory string) (map[string]string, error) {
	seen := map[string]string{} // name -> "file" | "dir" | "deleted"

	cur := editionID
	for {
		prefix := "editions/" + strconv.FormatInt(cur, 10) + "/"
		if directory != "" {
			prefix += directory + "/"
		}
		entries, err := be.List(ctx, prefix, "/")
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			name := strings.TrimSuffix(e.Key, "/")
			if name == "" || name == originFile || name == flattenedFile {
				continue
			}
			if _, already := seen[name]; already {
				continue
			}
			if e.IsDir {
				seen[name] = "dir"
				continue
			}
			full := path.Join(directory, name)
			data, rerr := be.Read(ctx, mappingKey(cur, full))
			if rerr != nil {
				if kerrs.Of(rerr) == kerrs.KindNotFound {
					continue
				}
				return nil, rerr
			}
			if string(data) == "deleted" {
				seen[name] = "deleted"
				continue
			}
			seen[name] = "file"
		}

		flattened, ferr := IsFlattened(ctx, be, cur)
		if ferr != nil {
			return nil, ferr
		}
		if flattened {
			break
		}
		parent, hasParent, oerr := Origin(ctx, be, cur)
		if oerr != nil {
			return nil, oerr
		}
		if !hasParent {
			break
		}
		cur = parent
	}
	return seen, nil
}

// List returns the live (non-tombstoned) immediate children of
// directory within editionID, merging every ancestor generation:
// a name last touched by a closer edition shadows the same name from
// an older ancestor, and a tombstone hides it entirely.
func List(ctx context.Context, be backend.Store, editionID int64, directory string) ([]Entry, error) {
	directory = strings.Trim(directory, "/")
	seen, err := mergeChildren(ctx, be, editionID, directory)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for name, kind := range seen {
		if kind == "deleted" {
			continue
		}
		out = append(out, Entry{Name: name, IsDir: kind == "dir"})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Ancestry returns editionID and every ancestor reachable from it,
// inclusive, stopping after the first edition carrying a .flattened
// marker (inclusive) or upon reaching a forest root. Used by garbage
// collection to build the live-edition closure from a seed (spec
// §4.I step 1).
func Ancestry(ctx context.Context, be backend.Store, editionID int64) ([]int64, error) {
	var ids []int64
	cur := editionID
	for {
		ids = append(ids, cur)
		flattened, err := IsFlattened(ctx, be, cur)
		if err != nil {
			return nil, err
		}
		if flattened {
			return ids, nil
		}
		parent, hasParent, err := Origin(ctx, be, cur)
		if err != nil {
			return nil, err
		}
		if !hasParent {
			return ids, nil
		}
		cur = parent
	}
}

// OwnMapping is one path mapping written directly onto an edition
// (not inherited from ancestry).
type OwnMapping struct {
	Path  string
	Token string // "sha256:<hex>" or "deleted"
}

// OwnMappings lists every mapping file an edition holds directly,
// depth-first, used by publish's stage() to attribute object
// references (spec §4.H step 4) without walking ancestry.
func OwnMappings(ctx context.Context, be backend.Store, editionID int64) ([]OwnMapping, error) {
	prefix := "editions/" + strconv.FormatInt(editionID, 10) + "/"
	entries, err := be.List(ctx, prefix, "")
	if err != nil {
		return nil, err
	}
	var out []OwnMapping
	for _, e := range entries {
		if e.IsDir || e.Key == originFile || e.Key == flattenedFile {
			continue
		}
		data, rerr := be.Read(ctx, prefix+e.Key)
		if rerr != nil {
			return nil, rerr
		}
		out = append(out, OwnMapping{Path: e.Key, Token: strings.TrimSpace(string(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Flatten materializes editionID's full resolved tree as direct
// mappings on editionID itself and plants a .flattened marker, so
// future ancestry walks starting at or below editionID never need to
// cross above it (spec §4.F, used to bound GC's live-set walk and to
// cap ever-deepening ancestry chains). Must run under the admin lease.
func Flatten(ctx context.Context, be backend.Store, objs *objectstore.Store, editionID int64) error {
	already, err := IsFlattened(ctx, be, editionID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	resolved, tombstones, err := flattenWalk(ctx, be, objs, editionID, "")
	if err != nil {
		return err
	}
	for p, hexDigest := range resolved {
		if err := PutMapping(ctx, be, editionID, p, hexDigest); err != nil {
			return err
		}
	}
	for p := range tombstones {
		if err := PutTombstone(ctx, be, editionID, p); err != nil {
			return err
		}
	}
	return be.Write(ctx, flattenedKey(editionID), []byte{})
}

// flattenWalk collects every live path mapping visible from editionID,
// recursing into subdirectories, and every tombstone shadowing an
// ancestor. Both must be materialized onto editionID: a tombstone
// omitted here would let a later edition's ancestry walk cross past
// editionID's new .flattened marker straight to the pre-delete
// content, resurrecting it (spec §9).
func flattenWalk(ctx context.Context, be backend.Store, objs *objectstore.Store, editionID int64, directory string) (map[string]string, map[string]bool, error) {
	resolved := map[string]string{}
	tombstones := map[string]bool{}
	seen, err := mergeChildren(ctx, be, editionID, directory)
	if err != nil {
		return nil, nil, err
	}
	for name, kind := range seen {
		full := path.Join(directory, name)
		switch kind {
		case "dir":
			subResolved, subTombstones, err := flattenWalk(ctx, be, objs, editionID, full)
			if err != nil {
				return nil, nil, err
			}
			for k, v := range subResolved {
				resolved[k] = v
			}
			for k := range subTombstones {
				tombstones[k] = true
			}
		case "deleted":
			tombstones[full] = true
		default: // "file"
			res, err := Resolve(ctx, be, objs, editionID, full)
			if err != nil {
				return nil, nil, err
			}
			if res.Status == StatusExists {
				resolved[full] = res.Hash
			}
		}
	}
	return resolved, tombstones, nil
}
