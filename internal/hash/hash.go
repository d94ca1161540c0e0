package hash

import (
	"encoding/binary"
	"hash/crc32"
	"iter"

	"github.com/cespare/xxhash/v2"
)

// EmptyColor is the digest of the empty set.
const EmptyColor uint64 = 0xef46db3751d8e999

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// ColorDigest incrementally computes a color from ascending members.
type ColorDigest struct {
	d   *xxhash.Digest
	buf [4]byte
}

// NewColorDigest returns a digest with no members.
func NewColorDigest() *ColorDigest {
	return &ColorDigest{d: xxhash.New()}
}

// Add appends the next member. Members must be added in ascending order.
func (c *ColorDigest) Add(idx uint32) {
	binary.LittleEndian.PutUint32(c.buf[:], idx)
	_, _ = c.d.Write(c.buf[:])
}

// Sum returns the color of the members added so far.
func (c *ColorDigest) Sum() uint64 {
	return c.d.Sum64()
}

// Color digests an ascending member sequence.
func Color(members iter.Seq[uint32]) uint64 {
	d := NewColorDigest()
	for idx := range members {
		d.Add(idx)
	}
	return d.Sum()
}
