package revindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/revindex/collection"
	"github.com/hupe1980/revindex/storage"
	"github.com/hupe1980/revindex/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zipIndex builds an index over a zip archive of the gather fixture.
func zipIndex(t *testing.T, root string) (idxDir, zipPath string) {
	t.Helper()
	ctx := context.Background()
	refs, _ := testutil.GatherFixture(1)

	zipPath = filepath.Join(root, "refs.zip")
	testutil.WriteZip(t, zipPath, refs)
	coll, err := collection.FromZip(ctx, zipPath)
	require.NoError(t, err)

	idxDir = filepath.Join(root, "index")
	idx, err := Create(ctx, idxDir, coll, false)
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	return idxDir, zipPath
}

func TestOpenMovedStorage(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir, zipPath := zipIndex(t, root)
	_, query := testutil.GatherFixture(1)

	idx, err := Open(ctx, dir, true, "")
	require.NoError(t, err)
	want := gather(t, idx, query, testutil.GatherThreshold)
	require.NoError(t, idx.Close())

	moved := filepath.Join(root, "elsewhere.zip")
	require.NoError(t, os.Rename(zipPath, moved))

	_, err = Open(ctx, dir, true, "")
	require.ErrorIs(t, err, ErrMovedStorage)

	_, err = Open(ctx, dir, true, "zip://"+filepath.Join(root, "missing.zip"))
	require.ErrorIs(t, err, ErrNotFound)

	idx, err = Open(ctx, dir, true, "zip://"+moved)
	require.NoError(t, err)
	assert.Equal(t, want, gather(t, idx, query, testutil.GatherThreshold))
	require.NoError(t, idx.Close())

	// The override is not persisted.
	_, err = Open(ctx, dir, true, "")
	require.ErrorIs(t, err, ErrMovedStorage)
}

func TestInternalizeStorage(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir, zipPath := zipIndex(t, root)
	_, query := testutil.GatherFixture(1)

	z, err := storage.OpenZip(zipPath)
	require.NoError(t, err)
	original, err := z.Load(ctx, "signatures/03.sig")
	require.NoError(t, err)
	require.NoError(t, z.Close())

	idx, err := Open(ctx, dir, false, "", WithCompression(CompressionZSTD), WithIOLimit(1<<30))
	require.NoError(t, err)
	want := gather(t, idx, query, testutil.GatherThreshold)
	require.NoError(t, idx.InternalizeStorage(ctx))
	require.NoError(t, idx.InternalizeStorage(ctx))

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, "badger://"+abs, idx.Collection().Storage().Spec())
	require.NoError(t, idx.Close())

	// Move the index and drop the archive.
	moved := filepath.Join(root, "moved-index")
	require.NoError(t, os.Rename(dir, moved))
	require.NoError(t, os.Remove(zipPath))

	idx, err = Open(ctx, moved, true, "")
	require.NoError(t, err)
	assert.Equal(t, want, gather(t, idx, query, testutil.GatherThreshold))
	require.NoError(t, idx.Close())

	kvs, err := storage.OpenKV(moved)
	require.NoError(t, err)
	defer kvs.Close()
	data, err := kvs.Load(ctx, "signatures/03.sig")
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestInternalizeEmptyIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := CreateEmpty(ctx, filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.InternalizeStorage(ctx))
	assert.Nil(t, idx.Collection().Storage())
}
