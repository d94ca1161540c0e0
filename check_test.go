package revindex

import (
	"context"
	"testing"

	"github.com/hupe1980/revindex/internal/kv"
	"github.com/hupe1980/revindex/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	ctx := context.Background()
	sigs := testutil.IndexFixture(1)
	metrics := &BasicMetricsCollector{}
	idx, _ := createIndex(t, sigs, WithMetricsCollector(metrics))

	// 48 + 40 + 35 private hashes and 20 shared ones.
	const hashes = 143

	quick, err := idx.Check(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(hashes), quick.TotalKeys)
	assert.Equal(t, uint64(hashes*8), quick.KCount)
	assert.Equal(t, uint64(hashes*8), quick.VCount)
	assert.Nil(t, quick.Histogram)
	assert.Zero(t, quick.TotalDatasets)

	deep, err := idx.Check(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, quick.TotalKeys, deep.TotalKeys)
	assert.Equal(t, uint64(3), deep.TotalDatasets)
	require.NotNil(t, deep.Histogram)
	assert.Equal(t, uint64(hashes), deep.Histogram.Count)
	assert.Equal(t, uint64(123+2*20), deep.Histogram.Sum)
	assert.Equal(t, uint64(2), deep.Histogram.Max)

	assert.Equal(t, int64(2), metrics.GetStats().CheckCount)
}

func TestCheckDetectsCorruptColor(t *testing.T) {
	ctx := context.Background()
	idx, dir := createIndex(t, testutil.IndexFixture(1))
	require.NoError(t, idx.Close())

	db, err := kv.Open(kv.Options{Path: dir, MustExist: true})
	require.NoError(t, err)
	var key []byte
	require.NoError(t, db.Iterate(partColors, func(k, _ []byte) error {
		if key == nil {
			key = append([]byte(nil), k...)
		}
		return nil
	}))
	require.NotNil(t, key)
	require.NoError(t, db.Update(func(tx *kv.Tx) error {
		return tx.Set(partColors, key, []byte{1, 2, 3})
	}))
	require.NoError(t, db.Close())

	ro, err := Open(ctx, dir, true, "")
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.Check(ctx, true)
	require.NoError(t, err)

	_, err = ro.Check(ctx, false)
	require.ErrorIs(t, err, ErrCorruptEntry)
	var ce *CorruptEntryError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, partColors, ce.Partition)
	assert.Equal(t, key, ce.Key)
}

func TestCheckDetectsDanglingColor(t *testing.T) {
	ctx := context.Background()
	idx, dir := createIndex(t, testutil.IndexFixture(1))
	require.NoError(t, idx.Close())

	db, err := kv.Open(kv.Options{Path: dir, MustExist: true})
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *kv.Tx) error {
		return tx.Set(partHashes, hashKey(7), colorKey(12345))
	}))
	require.NoError(t, db.Close())

	ro, err := Open(ctx, dir, true, "")
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.Check(ctx, false)
	var ce *CorruptEntryError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, partHashes, ce.Partition)
	assert.Equal(t, hashKey(7), ce.Key)
}
