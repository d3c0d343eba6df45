package objectstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/pkg/backend/localfs"
	"github.com/codelynx/kronoa/pkg/objectstore"
)

func newFixture(t *testing.T) *objectstore.Store {
	t.Helper()
	a, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return objectstore.New(a)
}

func TestPutIsContentAddressedAndIdempotent(t *testing.T) {
	ctx := context.Background()
	objs := newFixture(t)

	h1, err := objs.Put(ctx, []byte("hello"))
	require.NoError(t, err)
	h2, err := objs.Put(ctx, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, h1, h2, "identical bytes must dedup to the same digest")
	require.Equal(t, objectstore.HashHex([]byte("hello")), h1)

	data, err := objs.Get(ctx, h1)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestExistsAndStat(t *testing.T) {
	ctx := context.Background()
	objs := newFixture(t)

	hexDigest, err := objs.Put(ctx, []byte("payload"))
	require.NoError(t, err)

	exists, err := objs.Exists(ctx, hexDigest)
	require.NoError(t, err)
	require.True(t, exists)

	size, exists, err := objs.Stat(ctx, hexDigest)
	require.NoError(t, err)
	require.True(t, exists)
	require.EqualValues(t, len("payload"), size)

	_, missing, err := objs.Stat(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	require.False(t, missing)
}

func TestGetMissingObjectIsIntegrityError(t *testing.T) {
	ctx := context.Background()
	objs := newFixture(t)

	_, err := objs.Get(ctx, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	require.Error(t, err)
	require.Equal(t, kerrs.KindIntegrityError, kerrs.Of(err))
}

func TestAppendReferenceUnionsAndDedups(t *testing.T) {
	ctx := context.Background()
	objs := newFixture(t)

	hexDigest, err := objs.Put(ctx, []byte("hello"))
	require.NoError(t, err)

	refs, err := objs.References(ctx, hexDigest)
	require.NoError(t, err)
	require.Empty(t, refs)

	require.NoError(t, objs.AppendReference(ctx, hexDigest, 10001))
	require.NoError(t, objs.AppendReference(ctx, hexDigest, 10003))
	require.NoError(t, objs.AppendReference(ctx, hexDigest, 10001)) // already present

	refs, err = objs.References(ctx, hexDigest)
	require.NoError(t, err)
	require.Equal(t, []int64{10001, 10003}, refs)
}
