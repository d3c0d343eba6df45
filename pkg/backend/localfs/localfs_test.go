package localfs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/pkg/backend/localfs"
)

func newFixture(t *testing.T) *localfs.Adapter {
	t.Helper()
	a, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestWriteReadDelete(t *testing.T) {
	ctx := context.Background()
	a := newFixture(t)

	require.NoError(t, a.Write(ctx, "a/b.txt", []byte("hi")))

	data, err := a.Read(ctx, "a/b.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), data)

	exists, err := a.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, a.Delete(ctx, "a/b.txt"))
	_, err = a.Read(ctx, "a/b.txt")
	require.Equal(t, kerrs.KindNotFound, kerrs.Of(err))
}

func TestReadMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	a := newFixture(t)

	_, err := a.Read(ctx, "missing.txt")
	require.Equal(t, kerrs.KindNotFound, kerrs.Of(err))
}

func TestCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	a := newFixture(t)

	created, err := a.CreateIfAbsent(ctx, ".lock", []byte("first"))
	require.NoError(t, err)
	require.True(t, created)

	created, err = a.CreateIfAbsent(ctx, ".lock", []byte("second"))
	require.NoError(t, err)
	require.False(t, created)

	data, err := a.Read(ctx, ".lock")
	require.NoError(t, err)
	require.Equal(t, []byte("first"), data, "a losing CreateIfAbsent must not overwrite")
}

func TestListWithDelimiterReturnsImmediateChildren(t *testing.T) {
	ctx := context.Background()
	a := newFixture(t)

	require.NoError(t, a.Write(ctx, "blog/a.html", []byte("a")))
	require.NoError(t, a.Write(ctx, "blog/b.html", []byte("b")))
	require.NoError(t, a.Write(ctx, "blog/nested/c.html", []byte("c")))

	entries, err := a.List(ctx, "blog", "/")
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Key] = true
	}
	require.True(t, names["a.html"])
	require.True(t, names["b.html"])
	require.True(t, names["nested/"])
	require.False(t, names["nested/c.html"], "delimited listing must not descend into subdirectories")
}

func TestAtomicIncrementStartsAtInitialThenIncrements(t *testing.T) {
	ctx := context.Background()
	a := newFixture(t)

	first, err := a.AtomicIncrement(ctx, "editions/.head", 10000)
	require.NoError(t, err)
	require.EqualValues(t, 10000, first)

	second, err := a.AtomicIncrement(ctx, "editions/.head", 10000)
	require.NoError(t, err)
	require.EqualValues(t, 10001, second)
}

func TestWriteIfMatchEnforcesETag(t *testing.T) {
	ctx := context.Background()
	a := newFixture(t)

	require.NoError(t, a.Write(ctx, "k", []byte("v1")))
	etag, err := a.StatETag(ctx, "k")
	require.NoError(t, err)

	newEtag, err := a.WriteIfMatch(ctx, "k", etag, []byte("v2"))
	require.NoError(t, err)
	require.NotEqual(t, etag, newEtag)

	_, err = a.WriteIfMatch(ctx, "k", etag, []byte("v3"))
	require.Error(t, err, "stale etag must be rejected")
	require.Equal(t, kerrs.KindConcurrentModification, kerrs.Of(err))
}

func TestWriteIfMatchEmptyEtagRequiresAbsence(t *testing.T) {
	ctx := context.Background()
	a := newFixture(t)

	_, err := a.WriteIfMatch(ctx, "k", "", []byte("v1"))
	require.NoError(t, err)

	_, err = a.WriteIfMatch(ctx, "k", "", []byte("v2"))
	require.Error(t, err)
	require.Equal(t, kerrs.KindConcurrentModification, kerrs.Of(err))
}
