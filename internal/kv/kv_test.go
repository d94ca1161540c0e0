package kv

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func openTemp(t *testing.T) (*DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(Options{Path: dir})
	require.NoError(t, err)
	return db, dir
}

func TestPartitions(t *testing.T) {
	db, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.CreatePartition("hashes"))
	require.NoError(t, db.CreatePartition("colors"))
	require.NoError(t, db.CreatePartition("colors"))

	names, err := db.Partitions()
	require.NoError(t, err)
	assert.Equal(t, []string{"colors", "hashes"}, names)

	ok, err := db.HasPartition("color_merges")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, db.CreatePartition(""))
	assert.Error(t, db.CreatePartition("a\x00b"))
}

func TestPartitionsAreIsolated(t *testing.T) {
	db, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Update(func(tx *Tx) error {
		if err := tx.Set("hashes", u64(1), []byte("h")); err != nil {
			return err
		}
		return tx.Set("hashes2", u64(1), []byte("x"))
	}))

	n, err := db.Count("hashes")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := db.Get("hashes", u64(1))
	require.NoError(t, err)
	assert.Equal(t, []byte("h"), v)

	_, err = db.Get("colors", u64(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIterateInKeyOrder(t *testing.T) {
	db, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	b := db.NewBatch()
	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, b.Set("p", []byte(k), []byte("v"+k)))
	}
	assert.Equal(t, 3, b.Len())
	require.NoError(t, b.Commit())

	var keys []string
	require.NoError(t, db.Iterate("p", func(k, v []byte) error {
		keys = append(keys, string(k))
		assert.Equal(t, "v"+string(k), string(v))
		return nil
	}))
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	stop := fmt.Errorf("stop")
	err = db.Iterate("p", func(k, v []byte) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestUpdateIsAtomic(t *testing.T) {
	db, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	boom := fmt.Errorf("boom")
	err = db.Update(func(tx *Tx) error {
		require.NoError(t, tx.Set("metadata", []byte("manifest"), []byte("m")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = db.Get("metadata", []byte("manifest"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestViewIsReadOnly(t *testing.T) {
	db, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	err = db.View(func(tx *Tx) error {
		return tx.Set("p", []byte("k"), nil)
	})
	assert.Error(t, err)
}

func TestDropPartition(t *testing.T) {
	db, dir := openTemp(t)

	require.NoError(t, db.CreatePartition("hashes"))
	require.NoError(t, db.Update(func(tx *Tx) error {
		return tx.Set("hashes", u64(7), u64(8))
	}))
	require.NoError(t, db.DropPartition("hashes"))

	n, err := db.Count("hashes")
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err := db.HasPartition("hashes")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Close())
	assert.True(t, Exists(dir))
}

func TestReopenPersists(t *testing.T) {
	db, dir := openTemp(t)
	require.NoError(t, db.CreatePartition("colors"))
	require.NoError(t, db.Update(func(tx *Tx) error {
		return tx.Set("colors", u64(42), []byte{42})
	}))
	require.NoError(t, db.Sync())
	require.NoError(t, db.Compact())
	require.NoError(t, db.Close())

	db, err := Open(Options{Path: dir, MustExist: true})
	require.NoError(t, err)
	defer db.Close()

	v, err := db.Get("colors", u64(42))
	require.NoError(t, err)
	assert.Equal(t, []byte{42}, v)

	names, err := db.Partitions()
	require.NoError(t, err)
	assert.Equal(t, []string{"colors"}, names)
}

func TestMustExist(t *testing.T) {
	_, err := Open(Options{Path: t.TempDir(), MustExist: true})
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.False(t, Exists(t.TempDir()))
}
