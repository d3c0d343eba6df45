package edition_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/backend/localfs"
	"github.com/codelynx/kronoa/pkg/edition"
	"github.com/codelynx/kronoa/pkg/objectstore"
)

func newFixture(t *testing.T) (backend.Store, *objectstore.Store) {
	t.Helper()
	a, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, objectstore.New(a)
}

func TestResolveInheritsFromAncestor(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)

	hexDigest, err := objs.Put(ctx, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, edition.PutMapping(ctx, be, edition.GenesisID, "index.html", hexDigest))

	child := edition.GenesisID + 1
	require.NoError(t, edition.SetOrigin(ctx, be, child, edition.GenesisID))

	res, err := edition.Resolve(ctx, be, objs, child, "index.html")
	require.NoError(t, err)
	require.Equal(t, edition.StatusExists, res.Status)
	require.Equal(t, hexDigest, res.Hash)
	require.Equal(t, edition.GenesisID, res.At)
}

func TestResolveTombstoneShadowsAncestor(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)

	hexDigest, err := objs.Put(ctx, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, edition.PutMapping(ctx, be, edition.GenesisID, "a.txt", hexDigest))

	child := edition.GenesisID + 1
	require.NoError(t, edition.SetOrigin(ctx, be, child, edition.GenesisID))
	require.NoError(t, edition.PutTombstone(ctx, be, child, "a.txt"))

	res, err := edition.Resolve(ctx, be, objs, child, "a.txt")
	require.NoError(t, err)
	require.Equal(t, edition.StatusDeleted, res.Status)
	require.Equal(t, child, res.At)
}

func TestResolveNotFound(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)

	res, err := edition.Resolve(ctx, be, objs, edition.GenesisID, "missing.txt")
	require.NoError(t, err)
	require.Equal(t, edition.StatusNotFound, res.Status)
}

func TestListMergesGenerationsAndHidesTombstones(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)

	h1, err := objs.Put(ctx, []byte("one"))
	require.NoError(t, err)
	h2, err := objs.Put(ctx, []byte("two"))
	require.NoError(t, err)

	require.NoError(t, edition.PutMapping(ctx, be, edition.GenesisID, "keep.txt", h1))
	require.NoError(t, edition.PutMapping(ctx, be, edition.GenesisID, "gone.txt", h1))

	child := edition.GenesisID + 1
	require.NoError(t, edition.SetOrigin(ctx, be, child, edition.GenesisID))
	require.NoError(t, edition.PutMapping(ctx, be, child, "new.txt", h2))
	require.NoError(t, edition.PutTombstone(ctx, be, child, "gone.txt"))

	entries, err := edition.List(ctx, be, child, "")
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	require.True(t, names["keep.txt"])
	require.True(t, names["new.txt"])
	require.False(t, names["gone.txt"])
}

func TestFlattenMaterializesAncestryAndStopsWalk(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)

	h1, err := objs.Put(ctx, []byte("one"))
	require.NoError(t, err)
	require.NoError(t, edition.PutMapping(ctx, be, edition.GenesisID, "a.txt", h1))

	child := edition.GenesisID + 1
	require.NoError(t, edition.SetOrigin(ctx, be, child, edition.GenesisID))
	require.NoError(t, edition.Flatten(ctx, be, objs, child))

	flattened, err := edition.IsFlattened(ctx, be, child)
	require.NoError(t, err)
	require.True(t, flattened)

	res, err := edition.Resolve(ctx, be, objs, child, "a.txt")
	require.NoError(t, err)
	require.Equal(t, edition.StatusExists, res.Status)
	require.Equal(t, child, res.At, "flatten must materialize the inherited mapping directly on the child")
}

func TestAncestryStopsAtFlattenBoundary(t *testing.T) {
	ctx := context.Background()
	be, objs := newFixture(t)

	mid := edition.GenesisID + 1
	require.NoError(t, edition.SetOrigin(ctx, be, mid, edition.GenesisID))
	require.NoError(t, edition.Flatten(ctx, be, objs, mid))

	leaf := edition.GenesisID + 2
	require.NoError(t, edition.SetOrigin(ctx, be, leaf, mid))

	ids, err := edition.Ancestry(ctx, be, leaf)
	require.NoError(t, err)
	require.Equal(t, []int64{leaf, mid}, ids)
}

func TestNextIDAllocatesFromGenesis(t *testing.T) {
	ctx := context.Background()
	be, _ := newFixture(t)

	first, err := edition.NextID(ctx, be)
	require.NoError(t, err)
	require.Equal(t, edition.GenesisID, first)

	second, err := edition.NextID(ctx, be)
	require.NoError(t, err)
	require.Equal(t, edition.GenesisID+1, second)
}
