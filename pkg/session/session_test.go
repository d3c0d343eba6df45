package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/backend/localfs"
	"github.com/codelynx/kronoa/pkg/edition"
	"github.com/codelynx/kronoa/pkg/objectstore"
	"github.com/codelynx/kronoa/pkg/pointer"
	"github.com/codelynx/kronoa/pkg/session"
)

func newFixture(t *testing.T) (backend.Store, *objectstore.Store) {
	t.Helper()
	a, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, objectstore.New(a)
}

func TestCheckoutAutoCommitWriteVisibleImmediately(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)

	_, err := session.Initialize(ctx, be)
	require.NoError(t, err)

	s, err := session.Checkout(ctx, be, objs, "alice", pointer.Staging)
	require.NoError(t, err)
	require.Equal(t, session.ModeEditing, s.Mode())

	require.NoError(t, s.Write(ctx, "index.html", []byte("hello")))

	exists, err := s.Exists(ctx, "index.html")
	require.NoError(t, err)
	require.True(t, exists, "auto-commit writes must be visible without an explicit commit")

	data, err := s.Read(ctx, "index.html")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestCheckoutLabelInUseRejected(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	_, err := session.Initialize(ctx, be)
	require.NoError(t, err)

	_, err = session.Checkout(ctx, be, objs, "bob", pointer.Staging)
	require.NoError(t, err)

	_, err = session.Checkout(ctx, be, objs, "bob", pointer.Staging)
	require.Error(t, err)
}

func TestTransactionBufferedUntilCommit(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	_, err := session.Initialize(ctx, be)
	require.NoError(t, err)

	s, err := session.Checkout(ctx, be, objs, "carol", pointer.Staging)
	require.NoError(t, err)

	require.NoError(t, s.Begin())
	require.NoError(t, s.Write(ctx, "a.txt", []byte("one")))

	exists, err := s.Exists(ctx, "a.txt")
	require.NoError(t, err)
	require.True(t, exists, "the buffer itself must observe its own pending write")

	res, err := edition.Resolve(ctx, be, objs, s.EditionID(), "a.txt")
	require.NoError(t, err)
	require.Equal(t, edition.StatusNotFound, res.Status, "a buffered write must not be visible to a fresh observer before commit")

	require.NoError(t, s.Commit(ctx))

	res, err = edition.Resolve(ctx, be, objs, s.EditionID(), "a.txt")
	require.NoError(t, err)
	require.Equal(t, edition.StatusExists, res.Status)
}

func TestRollbackDiscardsBuffer(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	_, err := session.Initialize(ctx, be)
	require.NoError(t, err)

	s, err := session.Checkout(ctx, be, objs, "dave", pointer.Staging)
	require.NoError(t, err)

	require.NoError(t, s.Begin())
	require.NoError(t, s.Write(ctx, "a.txt", []byte("one")))
	require.NoError(t, s.Rollback())

	exists, err := s.Exists(ctx, "a.txt")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestListSuppressesSubdirectoryEmptiedByPendingDeletes(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	_, err := session.Initialize(ctx, be)
	require.NoError(t, err)

	setup, err := session.Checkout(ctx, be, objs, "erin", pointer.Staging)
	require.NoError(t, err)
	require.NoError(t, setup.Write(ctx, "dir/a", []byte("a")))
	require.NoError(t, setup.Write(ctx, "dir/b", []byte("b")))

	// advance staging straight to erin's edition, bypassing the
	// submit/stage/deploy admin flow, which is exercised elsewhere —
	// this test only needs frank's checkout to inherit dir/a and dir/b.
	require.NoError(t, pointer.Write(ctx, be, pointer.Staging, setup.EditionID()))

	s, err := session.Checkout(ctx, be, objs, "frank", pointer.Staging)
	require.NoError(t, err)

	entries, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "dir", entries[0].Name)
	require.True(t, entries[0].IsDir)

	require.NoError(t, s.Begin())
	require.NoError(t, s.Delete(ctx, "dir/a"))
	require.NoError(t, s.Delete(ctx, "dir/b"))

	entries, err = s.List(ctx, "")
	require.NoError(t, err)
	require.Empty(t, entries, "dir nets to zero live children once both its files are buffered-deleted")

	dirEntries, err := s.List(ctx, "dir")
	require.NoError(t, err)
	require.Empty(t, dirEntries)
}

func TestSubmitWritesPendingRecordAndClosesLabel(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	_, err := session.Initialize(ctx, be)
	require.NoError(t, err)

	s, err := session.Checkout(ctx, be, objs, "erin", pointer.Staging)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "a.txt", []byte("one")))
	require.NoError(t, s.Submit(ctx, "add a.txt"))
	require.Equal(t, session.ModeSubmitted, s.Mode())

	_, err = session.Checkout(ctx, be, objs, "erin", pointer.Staging)
	require.NoError(t, err, "submit must free the label for reuse")
}

func TestReadOnlySessionRejectsWrite(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	_, err := session.Initialize(ctx, be)
	require.NoError(t, err)

	s, err := session.OpenStaging(ctx, be, objs)
	require.NoError(t, err)
	require.Equal(t, session.ModeStaging, s.Mode())

	err = s.Write(ctx, "a.txt", []byte("x"))
	require.Error(t, err)
}
