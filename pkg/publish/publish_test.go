package publish_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/backend/localfs"
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

func TestStageDeployHappyPath(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	pipe := publish.New(be, objs, time.Second, time.Minute)

	sess, err := session.Checkout(ctx, be, objs, "alice", pointer.Production)
	require.NoError(t, err)
	require.NoError(t, sess.Write(ctx, "index.html", []byte("hello")))
	require.NoError(t, sess.Submit(ctx, "add homepage"))

	require.NoError(t, pipe.Stage(ctx, sess.EditionID()))

	stagingID, err := pointer.Read(ctx, be, pointer.Staging)
	require.NoError(t, err)
	require.Equal(t, sess.EditionID(), stagingID)

	require.NoError(t, pipe.Deploy(ctx))
	prodID, err := pointer.Read(ctx, be, pointer.Production)
	require.NoError(t, err)
	require.Equal(t, sess.EditionID(), prodID)

	hexDigest := objectstore.HashHex([]byte("hello"))
	refs, err := objs.References(ctx, hexDigest)
	require.NoError(t, err)
	require.Contains(t, refs, sess.EditionID())
}

func TestStageRejectsEditionWhoseBaseWasSuperseded(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	pipe := publish.New(be, objs, time.Second, time.Minute)

	// alice and bob both branch from the same production edition
	// before either is staged.
	alice, err := session.Checkout(ctx, be, objs, "alice", pointer.Production)
	require.NoError(t, err)
	require.NoError(t, alice.Write(ctx, "a.txt", []byte("a")))
	require.NoError(t, alice.Submit(ctx, "alice's change"))

	bob, err := session.Checkout(ctx, be, objs, "bob", pointer.Production)
	require.NoError(t, err)
	require.NoError(t, bob.Write(ctx, "b.txt", []byte("b")))
	require.NoError(t, bob.Submit(ctx, "bob's change"))

	// alice lands first.
	require.NoError(t, pipe.Stage(ctx, alice.EditionID()))
	require.NoError(t, pipe.Deploy(ctx))

	// bob's recorded base is the pre-alice production pointer, which
	// no longer equals the current production pointer once alice has
	// been deployed.
	err = pipe.Stage(ctx, bob.EditionID())
	require.Error(t, err)
	require.Equal(t, kerrs.KindConflictDetected, kerrs.Of(err))
}

func TestStageRejectsEditionWhenPointerWasRolledBackToAnAncestor(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	pipe := publish.New(be, objs, time.Second, time.Minute)

	// genesis (10000) -> alice (10001), staged and deployed.
	alice, err := session.Checkout(ctx, be, objs, "alice", pointer.Staging)
	require.NoError(t, err)
	require.NoError(t, alice.Write(ctx, "a.txt", []byte("a")))
	require.NoError(t, alice.Submit(ctx, "alice's change"))
	require.NoError(t, pipe.Stage(ctx, alice.EditionID()))
	require.NoError(t, pipe.Deploy(ctx))

	// bob branches from staging=alice's edition.
	bob, err := session.Checkout(ctx, be, objs, "bob", pointer.Staging)
	require.NoError(t, err)
	require.NoError(t, bob.Write(ctx, "b.txt", []byte("b")))
	require.NoError(t, bob.Submit(ctx, "bob's change"))

	// staging is rolled back to a proper ancestor of bob's base
	// (alice's own base, genesis), not to alice's edition itself.
	require.NoError(t, pipe.SetStagingPointer(ctx, alice.Base()))

	// bob's own ancestry still passes through the rolled-back genesis
	// edition, so a reachability-only check would wrongly accept this
	// stage; the literal base-equality check from spec §4.H step 3
	// must reject it instead.
	err = pipe.Stage(ctx, bob.EditionID())
	require.Error(t, err)
	require.Equal(t, kerrs.KindConflictDetected, kerrs.Of(err))

	var kerr *kerrs.Error
	require.ErrorAs(t, err, &kerr)
	require.Equal(t, bob.Base(), kerr.Base)
	require.Equal(t, alice.Base(), kerr.Current)

	// staging must not have moved.
	stagingID, err := pointer.Read(ctx, be, pointer.Staging)
	require.NoError(t, err)
	require.Equal(t, alice.Base(), stagingID)
}

func TestRejectRemovesPendingAndRecordsReason(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	pipe := publish.New(be, objs, time.Second, time.Minute)

	sess, err := session.Checkout(ctx, be, objs, "alice", pointer.Production)
	require.NoError(t, err)
	require.NoError(t, sess.Write(ctx, "a.txt", []byte("a")))
	require.NoError(t, sess.Submit(ctx, "a change"))

	require.NoError(t, pipe.Reject(ctx, sess.EditionID(), "not ready"))

	err = pipe.Stage(ctx, sess.EditionID())
	require.Error(t, err)
	require.Equal(t, kerrs.KindPendingNotFound, kerrs.Of(err))

	rejection, err := pipe.GetRejection(ctx, sess.EditionID())
	require.NoError(t, err)
	require.Equal(t, "not ready", rejection.Reason)
}

func TestSetStagingPointerRequiresExistingEdition(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	pipe := publish.New(be, objs, time.Second, time.Minute)

	err := pipe.SetStagingPointer(ctx, 999999)
	require.Error(t, err)
	require.Equal(t, kerrs.KindEditionNotFound, kerrs.Of(err))
}

func TestListPendingAndListRejected(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)
	pipe := publish.New(be, objs, time.Second, time.Minute)

	sess, err := session.Checkout(ctx, be, objs, "alice", pointer.Production)
	require.NoError(t, err)
	require.NoError(t, sess.Write(ctx, "a.txt", []byte("a")))
	require.NoError(t, sess.Submit(ctx, "a change"))

	pending, err := pipe.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, sess.EditionID(), pending[0].Edition)

	require.NoError(t, pipe.Reject(ctx, sess.EditionID(), "no"))

	pending, err = pipe.ListPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)

	rejected, err := pipe.ListRejected(ctx)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
}
