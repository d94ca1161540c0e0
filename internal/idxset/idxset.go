// Package idxset implements the compact dataset-index set stored for every
// color of a reverse index.
//
// A Set is a tagged union of three shapes:
//
//	Empty          no members
//	Single(v)      exactly one member
//	Many(bitmap)   two or more members, kept in a Roaring bitmap
//
// The encoded form is self-describing by length: one byte is Empty, eight
// bytes are Single (little-endian, zero padded) and anything else is the
// portable Roaring serialization of Many.
package idxset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// ErrCorrupt is returned when encoded bytes cannot be decoded into a Set.
var ErrCorrupt = errors.New("idxset: corrupt encoding")

// EmptySentinel is the single byte stored for an empty set.
const EmptySentinel byte = 42

const singleSize = 8

// Kind identifies the shape of a Set.
type Kind uint8

const (
	// KindEmpty is a set with no members.
	KindEmpty Kind = iota
	// KindSingle is a set with exactly one member.
	KindSingle
	// KindMany is a set with two or more members.
	KindMany
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindSingle:
		return "single"
	case KindMany:
		return "many"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Set is a compact set of dataset indices. The zero value is Empty.
//
// Set is not safe for concurrent mutation.
type Set struct {
	kind   Kind
	single uint32
	many   *roaring.Bitmap
}

// Empty returns the empty set.
func Empty() Set { return Set{} }

// Single returns a set holding exactly v.
func Single(v uint32) Set { return Set{kind: KindSingle, single: v} }

// New builds a set from ascending values. Duplicates are collapsed.
func New(sorted []uint32) Set {
	switch len(sorted) {
	case 0:
		return Set{}
	case 1:
		return Single(sorted[0])
	}
	s := Set{}
	for _, v := range sorted {
		s.Add(v)
	}
	return s
}

// FromSeq builds a set from a sequence of values in any order.
func FromSeq(seq iter.Seq[uint32]) Set {
	s := Set{}
	for v := range seq {
		s.Add(v)
	}
	return s
}

// Kind reports the current shape of the set.
func (s Set) Kind() Kind { return s.kind }

// Len returns the number of members.
func (s Set) Len() int {
	switch s.kind {
	case KindSingle:
		return 1
	case KindMany:
		return int(s.many.GetCardinality())
	default:
		return 0
	}
}

// IsEmpty reports whether the set has no members.
func (s Set) IsEmpty() bool { return s.kind == KindEmpty }

// Contains reports whether v is a member.
func (s Set) Contains(v uint32) bool {
	switch s.kind {
	case KindSingle:
		return s.single == v
	case KindMany:
		return s.many.Contains(v)
	default:
		return false
	}
}

// Add inserts v, promoting Empty to Single and Single to Many as needed.
func (s *Set) Add(v uint32) {
	switch s.kind {
	case KindEmpty:
		s.kind = KindSingle
		s.single = v
	case KindSingle:
		if s.single == v {
			return
		}
		s.many = roaring.BitmapOf(s.single, v)
		s.kind = KindMany
		s.single = 0
	case KindMany:
		s.many.Add(v)
	}
}

// Union merges other into s.
//
//	Empty ∪ X          = X
//	Single(v) ∪ Single(v) = Single(v)
//	Single(v) ∪ Single(w) = Many{v, w}
//	X ∪ Many           = Many
func (s *Set) Union(other Set) {
	switch other.kind {
	case KindEmpty:
		return
	case KindSingle:
		s.Add(other.single)
	case KindMany:
		switch s.kind {
		case KindEmpty:
			s.kind = KindMany
			s.many = other.many.Clone()
		case KindSingle:
			m := other.many.Clone()
			m.Add(s.single)
			s.kind = KindMany
			s.many = m
			s.single = 0
		case KindMany:
			s.many.Or(other.many)
		}
	}
}

// All yields the members in ascending order.
func (s Set) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		switch s.kind {
		case KindSingle:
			yield(s.single)
		case KindMany:
			it := s.many.Iterator()
			for it.HasNext() {
				if !yield(it.Next()) {
					return
				}
			}
		}
	}
}

// Slice returns the members in ascending order.
func (s Set) Slice() []uint32 {
	switch s.kind {
	case KindSingle:
		return []uint32{s.single}
	case KindMany:
		return s.many.ToArray()
	default:
		return nil
	}
}

// Clone returns a deep copy.
func (s Set) Clone() Set {
	if s.kind == KindMany {
		return Set{kind: KindMany, many: s.many.Clone()}
	}
	return s
}

// Equal reports whether both sets have the same members.
func (s Set) Equal(other Set) bool {
	if s.kind != other.kind {
		return false
	}
	switch s.kind {
	case KindSingle:
		return s.single == other.single
	case KindMany:
		return s.many.Equals(other.many)
	default:
		return true
	}
}

// Bytes encodes the set. See the package documentation for the layout.
func (s Set) Bytes() []byte {
	switch s.kind {
	case KindSingle:
		buf := make([]byte, singleSize)
		binary.LittleEndian.PutUint32(buf, s.single)
		return buf
	case KindMany:
		m := s.many.Clone()
		m.RunOptimize()
		buf, err := m.ToBytes()
		if err != nil {
			// Serializing into memory only fails on writer errors.
			panic(fmt.Sprintf("idxset: serialize bitmap: %v", err))
		}
		return buf
	default:
		return []byte{EmptySentinel}
	}
}

// FromBytes decodes a set produced by Bytes.
func FromBytes(data []byte) (Set, error) {
	switch len(data) {
	case 0:
		return Set{}, fmt.Errorf("%w: zero-length value", ErrCorrupt)
	case 1:
		if data[0] != EmptySentinel {
			return Set{}, fmt.Errorf("%w: bad empty sentinel 0x%02x", ErrCorrupt, data[0])
		}
		return Set{}, nil
	case singleSize:
		v := binary.LittleEndian.Uint64(data)
		if v > math.MaxUint32 {
			return Set{}, fmt.Errorf("%w: single value %d out of range", ErrCorrupt, v)
		}
		return Single(uint32(v)), nil
	}

	m := roaring.New()
	if _, err := m.ReadFrom(bytes.NewReader(data)); err != nil {
		return Set{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if m.GetCardinality() < 2 {
		return Set{}, fmt.Errorf("%w: bitmap holds %d values", ErrCorrupt, m.GetCardinality())
	}
	return Set{kind: KindMany, many: m}, nil
}

func (s Set) String() string {
	return fmt.Sprintf("%s%v", s.kind, s.Slice())
}
