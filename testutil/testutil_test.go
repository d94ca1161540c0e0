package testutil

import (
	"testing"

	"github.com/hupe1980/revindex/sketch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPoolIsDistinct(t *testing.T) {
	pool := NewRNG(4711).NewHashPool(Scaled)
	a := pool.Take(100)
	b := pool.Take(100)

	seen := map[uint64]bool{}
	for _, h := range append(a, b...) {
		assert.False(t, seen[h])
		seen[h] = true
		assert.Less(t, h, sketch.MaxHashForScaled(Scaled))
	}
	assert.IsIncreasing(t, a)
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.NewHashPool(Scaled).Take(5)
	rng.Reset()
	b := rng.NewHashPool(Scaled).Take(5)
	assert.Equal(t, a, b)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestFixtureSizes(t *testing.T) {
	idx := IndexFixture(1)
	require.Len(t, idx, 3)
	assert.Equal(t, 48, idx[0].MinHash().Len())

	upd := UpdateFixture(1)
	assert.Equal(t, 45, upd[2].MinHash().Len())

	refs, query := GatherFixture(1)
	require.Len(t, refs, 12)
	total := 0
	for _, r := range refs {
		total += r.MinHash().Len()
	}
	// reference 11 shares 30 hashes with reference 0
	assert.Equal(t, total-30, query.MinHash().Len())
}
