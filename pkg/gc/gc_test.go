package gc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/backend/localfs"
	"github.com/codelynx/kronoa/pkg/gc"
	"github.com/codelynx/kronoa/pkg/objectstore"
	"github.com/codelynx/kronoa/pkg/pointer"
	"github.com/codelynx/kronoa/pkg/publish"
	"github.com/codelynx/kronoa/pkg/session"
)

func newFixture(t *testing.T) (backend.Store, *objectstore.Store) {
	t.Helper()
	a, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	be := backend.Store(a)
	objs := objectstore.New(a)
	_, err = session.Initialize(context.Background(), be)
	require.NoError(t, err)
	return be, objs
}

func TestGCKeepsReferencedObjectsAndOrphansTheRest(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	pipe := publish.New(be, objs, time.Second, time.Minute)
	collector := gc.New(be, objs, time.Second, time.Minute)

	kept, err := session.Checkout(ctx, be, objs, "alice", pointer.Production)
	require.NoError(t, err)
	require.NoError(t, kept.Write(ctx, "a.txt", []byte("keep me")))
	require.NoError(t, kept.Submit(ctx, "keep"))
	require.NoError(t, pipe.Stage(ctx, kept.EditionID()))
	require.NoError(t, pipe.Deploy(ctx))

	// An edition that is checked out, written to, submitted and then
	// rejected: its object was never attributed a .ref entry, and the
	// edition is no longer live (no working record, no pending record,
	// not named by a pointer), so neither the fast path nor the scan
	// path keeps it.
	rejected, err := session.Checkout(ctx, be, objs, "bob", pointer.Production)
	require.NoError(t, err)
	require.NoError(t, rejected.Write(ctx, "b.txt", []byte("orphan candidate")))
	require.NoError(t, rejected.Submit(ctx, "will be rejected"))
	require.NoError(t, pipe.Reject(ctx, rejected.EditionID(), "no"))

	result, err := collector.Run(ctx)
	require.NoError(t, err)

	keptHash := objectstore.HashHex([]byte("keep me"))
	orphanHash := objectstore.HashHex([]byte("orphan candidate"))

	require.NotContains(t, result.Orphans, keptHash)
	require.Contains(t, result.Orphans, orphanHash, "a rejected edition's object is no longer live")
}

func TestGCKeepsObjectsFromOpenEditingSessions(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	collector := gc.New(be, objs, time.Second, time.Minute)

	sess, err := session.Checkout(ctx, be, objs, "alice", pointer.Production)
	require.NoError(t, err)
	require.NoError(t, sess.Write(ctx, "draft.txt", []byte("work in progress")))

	result, err := collector.Run(ctx)
	require.NoError(t, err)

	draftHash := objectstore.HashHex([]byte("work in progress"))
	require.NotContains(t, result.Orphans, draftHash, "an open checkout's draft must not be collected")
}
