package session

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/internal/kronolog"
	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/edition"
	"github.com/codelynx/kronoa/pkg/objectstore"
	"github.com/codelynx/kronoa/pkg/path"
	"github.com/codelynx/kronoa/pkg/pointer"
	"github.com/codelynx/kronoa/pkg/record"
)

var logger = kronolog.WithComponent("session")

// Mode identifies one of the five session kinds spec §4.G names.
type Mode int

const (
	ModeProduction Mode = iota
	ModeStaging
	ModeEditing
	ModeSubmitted
	ModeEditionView
)

func (m Mode) String() string {
	switch m {
	case ModeProduction:
		return "production"
	case ModeStaging:
		return "staging"
	case ModeEditing:
		return "editing"
	case ModeSubmitted:
		return "submitted"
	case ModeEditionView:
		return "edition"
	default:
		return "unknown"
	}
}

type opKind int

const (
	opWrite opKind = iota
	opDelete
)

type pendingOp struct {
	kind opKind
	hash string
	size int64
	data []byte // nil for copy (bytes already exist in the object store)
}

// workingRecord is the JSON body of `.<label>.json` (spec §6).
type workingRecord struct {
	Edition int64  `json:"edition"`
	Base    int64  `json:"base"`
	Source string `json:"source"`
}

// StatResult is the three-valued answer to Stat, letting callers tell
// "deleted in ancestry" apart from "never existed" (spec §7).
type StatResult struct {
	Status       edition.Status
	Hash         string
	Size         int64
	ResolvedFrom int64
}

// Session is a single checkout, either read-only (production, staging,
// submitted, or a named edition preview) or read-write (editing).
type Session struct {
	be   backend.Store
	objs *objectstore.Store

	mode      Mode
	label     string
	editionID int64
	base      int64
	source    string

	inTx    bool
	pending map[string]*pendingOp
}

func labelKey(label string) string { return "." + label + ".json" }

// Checkout opens a new working edition for editing, per spec §4.G
// steps 1-7.
func Checkout(ctx context.Context, be backend.Store, objs *objectstore.Store, label string, source pointer.Name) (*Session, error) {
	if err := path.ValidateLabel(label); err != nil {
		return nil, err
	}
	if source != pointer.Staging && source != pointer.Production {
		return nil, kerrs.New(kerrs.KindInvalidPath, "checkout: source must be staging or production")
	}

	key := labelKey(label)
	created, err := be.CreateIfAbsent(ctx, key, nil)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, kerrs.New(kerrs.KindLabelInUse, "checkout: label "+label+" already in use")
	}

	rollback := func(cause error) (*Session, error) {
		if delErr := be.Delete(ctx, key); delErr != nil {
			logger.Warn().Err(delErr).Str("label", label).Msg("checkout rollback: failed to remove working record")
		}
		return nil, cause
	}

	base, err := pointer.Read(ctx, be, source)
	if err != nil {
		return rollback(err)
	}

	newID, err := edition.NextID(ctx, be)
	if err != nil {
		return rollback(err)
	}

	if err := edition.SetOrigin(ctx, be, newID, base); err != nil {
		return rollback(err)
	}

	rec := workingRecord{Edition: newID, Base: base, Source: string(source)}
	data, err := json.Marshal(rec)
	if err != nil {
		return rollback(err)
	}
	if err := be.Write(ctx, key, data); err != nil {
		return rollback(err)
	}

	logger.Info().Str("label", label).Int64("edition", newID).Int64("base", base).Str("source", string(source)).Msg("checkout")
	return &Session{
		be:        be,
		objs:      objs,
		mode:      ModeEditing,
		label:     label,
		editionID: newID,
		base:      base,
		source:    string(source),
		pending:   map[string]*pendingOp{},
	}, nil
}

// OpenProduction opens a read-only session pinned at the current
// production pointer. Per spec §8 "pointer monotonicity within a
// session", the captured edition id never changes afterward even if
// production is later redeployed.
func OpenProduction(ctx context.Context, be backend.Store, objs *objectstore.Store) (*Session, error) {
	id, err := pointer.Read(ctx, be, pointer.Production)
	if err != nil {
		return nil, err
	}
	return &Session{be: be, objs: objs, mode: ModeProduction, editionID: id}, nil
}

// OpenStaging opens a read-only session pinned at the current staging
// pointer.
func OpenStaging(ctx context.Context, be backend.Store, objs *objectstore.Store) (*Session, error) {
	id, err := pointer.Read(ctx, be, pointer.Staging)
	if err != nil {
		return nil, err
	}
	return &Session{be: be, objs: objs, mode: ModeStaging, editionID: id}, nil
}

// OpenEdition opens a read-only preview session pinned at an arbitrary
// edition id, used to inspect pending edits before they are staged.
func OpenEdition(be backend.Store, objs *objectstore.Store, editionID int64) *Session {
	return &Session{be: be, objs: objs, mode: ModeEditionView, editionID: editionID}
}

// OpenSubmitted opens a read-only session on an edition that has been
// submitted and is awaiting review.
func OpenSubmitted(be backend.Store, objs *objectstore.Store, editionID int64) *Session {
	return &Session{be: be, objs: objs, mode: ModeSubmitted, editionID: editionID}
}

// OpenLabel resumes an in-progress editing session from its
// `.<label>.json` working record (spec §6), letting a caller reattach
// to a checkout across separate process invocations, as a CLI must.
// Any buffered transaction from a prior process is lost: pending
// writes only ever lived in memory.
func OpenLabel(ctx context.Context, be backend.Store, objs *objectstore.Store, label string) (*Session, error) {
	if err := path.ValidateLabel(label); err != nil {
		return nil, err
	}
	data, err := be.Read(ctx, labelKey(label))
	if err != nil {
		if kerrs.Of(err) == kerrs.KindNotFound {
			return nil, kerrs.New(kerrs.KindLabelNotFound, "open: no checkout for label "+label)
		}
		return nil, err
	}
	var rec workingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, kerrs.Wrapf(kerrs.KindPendingCorrupt, err, "working record for label %s is malformed", label)
	}
	return &Session{
		be:        be,
		objs:      objs,
		mode:      ModeEditing,
		label:     label,
		editionID: rec.Edition,
		base:      rec.Base,
		source:    rec.Source,
		pending:   map[string]*pendingOp{},
	}, nil
}

// Mode reports the session's mode.
func (s *Session) Mode() Mode { return s.mode }

// EditionID reports the edition this session reads (or, in editing
// mode, the working edition it writes).
func (s *Session) EditionID() int64 { return s.editionID }

// Label reports the checkout label, or "" outside editing mode.
func (s *Session) Label() string { return s.label }

// Base reports the pointer value this session's working edition was
// branched from at checkout time (the pending record's "base" field),
// or 0 outside editing mode.
func (s *Session) Base() int64 { return s.base }

func (s *Session) requireEditing(op string) error {
	if s.mode != ModeEditing {
		return kerrs.New(kerrs.KindReadOnlyMode, "session: "+op+" requires an editing session")
	}
	return nil
}

// Exists reports whether path currently resolves to live content,
// conflating tombstones with not-found at this surface (spec §7).
func (s *Session) Exists(ctx context.Context, p string) (bool, error) {
	if err := path.ValidateContentPath(p); err != nil {
		return false, err
	}
	if op, ok := s.pending[p]; ok {
		return op.kind == opWrite, nil
	}
	res, err := edition.Resolve(ctx, s.be, s.objs, s.editionID, p)
	if err != nil {
		return false, err
	}
	return res.Status == edition.StatusExists, nil
}

// Read returns path's bytes, or KindNotFound if it is absent or
// tombstoned (read conflates the two, per spec §7 — use Stat to tell
// them apart).
func (s *Session) Read(ctx context.Context, p string) ([]byte, error) {
	if err := path.ValidateContentPath(p); err != nil {
		return nil, err
	}
	if op, ok := s.pending[p]; ok {
		if op.kind == opDelete {
			return nil, kerrs.NotFound(p)
		}
		if op.data != nil {
			return op.data, nil
		}
		return s.objs.Get(ctx, op.hash)
	}
	res, err := edition.Resolve(ctx, s.be, s.objs, s.editionID, p)
	if err != nil {
		return nil, err
	}
	if res.Status != edition.StatusExists {
		return nil, kerrs.NotFound(p)
	}
	return s.objs.Get(ctx, res.Hash)
}

// Stat returns the three-valued resolution of path, including which
// edition the answer came from.
func (s *Session) Stat(ctx context.Context, p string) (*StatResult, error) {
	if err := path.ValidateContentPath(p); err != nil {
		return nil, err
	}
	if op, ok := s.pending[p]; ok {
		if op.kind == opDelete {
			return &StatResult{Status: edition.StatusDeleted, ResolvedFrom: s.editionID}, nil
		}
		return &StatResult{Status: edition.StatusExists, Hash: op.hash, Size: op.size, ResolvedFrom: s.editionID}, nil
	}
	res, err := edition.Resolve(ctx, s.be, s.objs, s.editionID, p)
	if err != nil {
		return nil, err
	}
	return &StatResult{Status: res.Status, Hash: res.Hash, Size: res.Size, ResolvedFrom: res.At}, nil
}

// List returns the live children of directory, merging the pending
// buffer over the ancestry-derived listing (spec §4.G "read
// visibility rules"). A subdirectory that nets to zero live children
// once the buffer is merged in — every file under it tombstoned in
// this transaction — is suppressed from the result (spec §9 "buffered
// subdirectory suppression"), even though the ancestor still lists
// other files there.
func (s *Session) List(ctx context.Context, directory string) ([]edition.Entry, error) {
	byName, err := s.mergedChildren(ctx, directory)
	if err != nil {
		return nil, err
	}

	out := make([]edition.Entry, 0, len(byName))
	for _, e := range byName {
		if e.IsDir {
			empty, err := s.subtreeIsEmpty(ctx, joinDir(directory, e.Name))
			if err != nil {
				return nil, err
			}
			if empty {
				continue
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// mergedChildren returns directory's immediate children: the
// ancestry-derived listing with the pending buffer overlaid. It does
// not resolve whether a surfaced subdirectory still has any live
// descendant; callers that need that check use subtreeIsEmpty.
func (s *Session) mergedChildren(ctx context.Context, directory string) (map[string]edition.Entry, error) {
	base, err := edition.List(ctx, s.be, s.editionID, directory)
	if err != nil {
		return nil, err
	}
	byName := map[string]edition.Entry{}
	for _, e := range base {
		byName[e.Name] = e
	}

	dirPrefix := strings.Trim(directory, "/")
	if dirPrefix != "" {
		dirPrefix += "/"
	}
	for p, op := range s.pending {
		if !strings.HasPrefix(p, dirPrefix) {
			continue
		}
		rel := strings.TrimPrefix(p, dirPrefix)
		if rel == "" {
			continue
		}
		if idx := strings.Index(rel, "/"); idx >= 0 {
			if op.kind == opWrite {
				name := rel[:idx]
				byName[name] = edition.Entry{Name: name, IsDir: true}
			}
			continue
		}
		if op.kind == opDelete {
			delete(byName, rel)
			continue
		}
		byName[rel] = edition.Entry{Name: rel, IsDir: false}
	}
	return byName, nil
}

// subtreeIsEmpty reports whether directory has zero live children once
// the pending buffer is merged over its ancestry listing, recursing
// into subdirectories. A directory with no children at all counts as
// empty; a directory holding so much as one live file, at any depth,
// does not.
func (s *Session) subtreeIsEmpty(ctx context.Context, directory string) (bool, error) {
	children, err := s.mergedChildren(ctx, directory)
	if err != nil {
		return false, err
	}
	for _, e := range children {
		if !e.IsDir {
			return false, nil
		}
		empty, err := s.subtreeIsEmpty(ctx, joinDir(directory, e.Name))
		if err != nil {
			return false, err
		}
		if !empty {
			return false, nil
		}
	}
	return true, nil
}

// joinDir appends name to directory, trimming directory's slashes so
// repeated joins don't accumulate separators.
func joinDir(directory, name string) string {
	directory = strings.Trim(directory, "/")
	if directory == "" {
		return name
	}
	return directory + "/" + name
}

// Write stores bytes at path: buffered if a transaction is open,
// otherwise auto-committed immediately (spec §4.G).
func (s *Session) Write(ctx context.Context, p string, data []byte) error {
	if err := path.ValidateContentPath(p); err != nil {
		return err
	}
	if err := s.requireEditing("write"); err != nil {
		return err
	}
	hexDigest := objectstore.HashHex(data)
	if s.inTx {
		s.pending[p] = &pendingOp{kind: opWrite, hash: hexDigest, size: int64(len(data)), data: data}
		return nil
	}
	if _, err := s.objs.Put(ctx, data); err != nil {
		return err
	}
	return edition.PutMapping(ctx, s.be, s.editionID, p, hexDigest)
}

// Delete tombstones path: buffered if a transaction is open, otherwise
// auto-committed immediately.
func (s *Session) Delete(ctx context.Context, p string) error {
	if err := path.ValidateContentPath(p); err != nil {
		return err
	}
	if err := s.requireEditing("delete"); err != nil {
		return err
	}
	if s.inTx {
		s.pending[p] = &pendingOp{kind: opDelete}
		return nil
	}
	return edition.PutTombstone(ctx, s.be, s.editionID, p)
}

// Copy resolves src through ancestry and the pending buffer and
// creates a new mapping at dst pointing at the same object; no bytes
// are transferred (spec §4.G).
func (s *Session) Copy(ctx context.Context, src, dst string) error {
	if err := path.ValidateContentPath(src); err != nil {
		return err
	}
	if err := path.ValidateContentPath(dst); err != nil {
		return err
	}
	if err := s.requireEditing("copy"); err != nil {
		return err
	}
	st, err := s.Stat(ctx, src)
	if err != nil {
		return err
	}
	if st.Status != edition.StatusExists {
		return kerrs.NotFound(src)
	}
	if s.inTx {
		s.pending[dst] = &pendingOp{kind: opWrite, hash: st.Hash, size: st.Size}
		return nil
	}
	return edition.PutMapping(ctx, s.be, s.editionID, dst, st.Hash)
}

// Discard drops any pending entry for path and unconditionally
// removes the committed mapping file under the working edition, so
// the path again resolves through ancestry as it did before the
// working edition existed.
func (s *Session) Discard(ctx context.Context, p string) error {
	if err := path.ValidateContentPath(p); err != nil {
		return err
	}
	if err := s.requireEditing("discard"); err != nil {
		return err
	}
	delete(s.pending, p)
	return edition.DeleteMapping(ctx, s.be, s.editionID, p)
}

// Begin opens an explicit transaction; legal only in editing mode with
// no transaction already in progress.
func (s *Session) Begin() error {
	if err := s.requireEditing("begin"); err != nil {
		return err
	}
	if s.inTx {
		return kerrs.New(kerrs.KindAlreadyInTransction, "session: transaction already in progress")
	}
	s.inTx = true
	return nil
}

// Commit walks the pending buffer, writing objects and mapping files.
// It is not all-or-nothing at the backend level (spec §7): a failure
// partway through leaves the working edition with a partial mapping
// set, and the caller may retry Commit (pending entries already
// flushed are harmless to re-flush) or Discard the rest.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.requireEditing("commit"); err != nil {
		return err
	}
	if !s.inTx {
		return kerrs.New(kerrs.KindNotInTransaction, "session: no transaction in progress")
	}
	for p, op := range s.pending {
		switch op.kind {
		case opWrite:
			if op.data != nil {
				if _, err := s.objs.Put(ctx, op.data); err != nil {
					return err
				}
			}
			if err := edition.PutMapping(ctx, s.be, s.editionID, p, op.hash); err != nil {
				return err
			}
		case opDelete:
			if err := edition.PutTombstone(ctx, s.be, s.editionID, p); err != nil {
				return err
			}
		}
		delete(s.pending, p)
	}
	s.inTx = false
	return nil
}

// Rollback drops the pending buffer without touching the backend.
func (s *Session) Rollback() error {
	if err := s.requireEditing("rollback"); err != nil {
		return err
	}
	if !s.inTx {
		return kerrs.New(kerrs.KindNotInTransaction, "session: no transaction in progress")
	}
	s.pending = map[string]*pendingOp{}
	s.inTx = false
	return nil
}

// Submit auto-commits any live transaction, records a pending review
// record, removes the working record, and transitions the session to
// submitted mode (spec §4.G). The working edition's mapping files are
// otherwise untouched.
func (s *Session) Submit(ctx context.Context, message string) error {
	if err := s.requireEditing("submit"); err != nil {
		return err
	}
	if s.inTx {
		if err := s.Commit(ctx); err != nil {
			return err
		}
	}

	rec := record.Pending{
		Edition:     s.editionID,
		Base:        s.base,
		Source:      s.source,
		Label:       s.label,
		Message:     message,
		SubmittedAt: record.NowISO8601(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.be.Write(ctx, record.PendingKey(s.editionID), data); err != nil {
		return err
	}
	if err := s.be.Delete(ctx, labelKey(s.label)); err != nil && kerrs.Of(err) != kerrs.KindNotFound {
		return err
	}

	logger.Info().Str("label", s.label).Int64("edition", s.editionID).Msg("submit")
	s.mode = ModeSubmitted
	s.label = ""
	s.inTx = false
	s.pending = map[string]*pendingOp{}
	return nil
}
