package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistogramBuckets(t *testing.T) {
	var h Histogram
	for _, v := range []uint64{0, 1, 2, 3, 4, 7, 8, 1 << 15, 1<<16 - 1, 1 << 16, 1 << 40} {
		h.Increment(v)
	}

	assert.Equal(t, uint64(1), h.Buckets[0])
	assert.Equal(t, uint64(1), h.Buckets[1])  // 1
	assert.Equal(t, uint64(2), h.Buckets[2])  // 2, 3
	assert.Equal(t, uint64(2), h.Buckets[3])  // 4, 7
	assert.Equal(t, uint64(1), h.Buckets[4])  // 8
	assert.Equal(t, uint64(2), h.Buckets[16]) // 2^15, 2^16-1
	assert.Equal(t, uint64(2), h.Buckets[17]) // overflow
	assert.Equal(t, uint64(11), h.Count)
	assert.Equal(t, uint64(1<<40), h.Max)
}

func TestHistogramBounds(t *testing.T) {
	var h Histogram
	lo, hi := h.Bounds(0)
	assert.Equal(t, [2]uint64{0, 0}, [2]uint64{lo, hi})
	lo, hi = h.Bounds(3)
	assert.Equal(t, [2]uint64{4, 7}, [2]uint64{lo, hi})
	lo, hi = h.Bounds(MaxExp + 1)
	assert.Equal(t, [2]uint64{1 << MaxExp, 1 << MaxExp}, [2]uint64{lo, hi})
}

func TestHistogramMerge(t *testing.T) {
	var a, b Histogram
	a.Increment(1)
	b.Increment(3)
	b.Increment(5)

	a.Merge(&b)
	assert.Equal(t, uint64(3), a.Count)
	assert.Equal(t, uint64(9), a.Sum)
	assert.InDelta(t, 3.0, a.Mean(), 1e-9)
	assert.Contains(t, a.String(), "[2, 3]: 1")
}
