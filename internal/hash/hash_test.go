package hash

import (
	"slices"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
)

func TestEmptyColorSentinel(t *testing.T) {
	assert.Equal(t, xxhash.Sum64(nil), EmptyColor)
	assert.Equal(t, EmptyColor, Color(slices.Values([]uint32(nil))))
}

func TestColorDeterministic(t *testing.T) {
	a := Color(slices.Values([]uint32{1, 5, 1000000}))
	b := Color(slices.Values([]uint32{1, 5, 1000000}))
	c := Color(slices.Values([]uint32{1, 5}))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCRC32C(t *testing.T) {
	// Known-answer value for the Castagnoli polynomial.
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
}
