package idxset

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		set     Set
		kind    Kind
		members []uint32
		size    int
	}{
		{name: "empty", set: Empty(), kind: KindEmpty, members: nil, size: 1},
		{name: "single zero", set: Single(0), kind: KindSingle, members: []uint32{0}, size: 8},
		{name: "single max", set: Single(math.MaxUint32), kind: KindSingle, members: []uint32{math.MaxUint32}, size: 8},
		{name: "many", set: New([]uint32{1, 5, 1000000}), kind: KindMany, members: []uint32{1, 5, 1000000}, size: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.set.Bytes()
			if tt.size > 0 {
				require.Len(t, buf, tt.size)
			} else {
				require.NotEqual(t, 1, len(buf))
				require.NotEqual(t, 8, len(buf))
			}

			got, err := FromBytes(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind())
			assert.Equal(t, tt.members, got.Slice())
			assert.True(t, got.Equal(tt.set))
			assert.Equal(t, len(tt.members), got.Len())
		})
	}
}

func TestUnionPromotion(t *testing.T) {
	s := Empty()
	s.Union(Empty())
	assert.Equal(t, KindEmpty, s.Kind())

	s.Union(Single(7))
	assert.Equal(t, KindSingle, s.Kind())

	s.Union(Single(7))
	assert.Equal(t, KindSingle, s.Kind())
	assert.Equal(t, 1, s.Len())

	s.Union(Single(3))
	assert.Equal(t, KindMany, s.Kind())
	assert.Equal(t, []uint32{3, 7}, s.Slice())

	other := Single(9)
	other.Union(New([]uint32{1, 2}))
	assert.Equal(t, KindMany, other.Kind())
	assert.Equal(t, []uint32{1, 2, 9}, other.Slice())

	s.Union(other)
	assert.Equal(t, []uint32{1, 2, 3, 7, 9}, s.Slice())
}

func TestUnionDoesNotAlias(t *testing.T) {
	many := New([]uint32{1, 2})
	s := Empty()
	s.Union(many)
	s.Add(10)

	assert.False(t, many.Contains(10))
	assert.True(t, s.Contains(10))
}

func TestNewDeduplicates(t *testing.T) {
	s := New([]uint32{4, 4})
	assert.Equal(t, KindSingle, s.Kind())
	assert.Equal(t, []uint32{4}, s.Slice())
}

func TestAllIsAscendingAndLazy(t *testing.T) {
	s := FromSeq(slices.Values([]uint32{10, 1, 5, 3}))

	var got []uint32
	for v := range s.All() {
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []uint32{1, 3}, got)
	assert.Equal(t, []uint32{1, 3, 5, 10}, slices.Collect(s.All()))
}

func TestContains(t *testing.T) {
	assert.False(t, Empty().Contains(0))
	assert.True(t, Single(4).Contains(4))
	assert.False(t, Single(4).Contains(5))
	assert.True(t, New([]uint32{1, 9}).Contains(9))
}

func TestFromBytesCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "zero length", data: nil},
		{name: "bad sentinel", data: []byte{0}},
		{name: "single out of range", data: []byte{0, 0, 0, 0, 1, 0, 0, 0}},
		{name: "garbage bitmap", data: []byte{1, 2, 3}},
		{name: "bitmap with one value", data: mustBitmapBytes(t, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBytes(tt.data)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func mustBitmapBytes(t *testing.T, v uint32) []byte {
	t.Helper()
	s := New([]uint32{v, v + 1})
	s.many.Remove(v + 1)
	buf, err := s.many.ToBytes()
	require.NoError(t, err)
	return buf
}
