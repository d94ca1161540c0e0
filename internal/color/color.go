// Package color maps dataset sets to canonical color ids and maintains the
// hash → color mappings built from dataset sketches.
//
// Colors are content addressed: a color is the digest of its member set, so
// two independently built tables agree on the color of every set they share.
// This is what makes Reduce associative and lets builds run in parallel.
package color

import (
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/hupe1980/revindex/internal/hash"
	"github.com/hupe1980/revindex/internal/idxset"
)

var (
	// ErrUnknownColor is returned when a color is not present in a table.
	ErrUnknownColor = errors.New("color: unknown color")

	// ErrColorCollision is returned when two different sets digest to the same color.
	ErrColorCollision = errors.New("color: digest collision")

	// ErrColorMismatch is returned when two tables derive different colors for one set.
	ErrColorMismatch = errors.New("color: tables disagree on color")
)

// Color identifies a set of dataset indices.
type Color uint64

// EmptyColor is the color of the empty set.
const EmptyColor = Color(hash.EmptyColor)

// Of computes the canonical color of s.
func Of(s idxset.Set) Color {
	if s.IsEmpty() {
		return EmptyColor
	}
	return Color(hash.Color(s.All()))
}

func (c Color) String() string {
	return fmt.Sprintf("%016x", uint64(c))
}

// Table maps colors to their member sets.
//
// Table is not safe for concurrent use; parallel builds give every worker
// its own table and merge them with Reduce.
type Table struct {
	sets map[Color]idxset.Set
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{sets: make(map[Color]idxset.Set)}
}

// Len returns the number of colors in the table.
func (t *Table) Len() int { return len(t.sets) }

// Get returns the set of c.
func (t *Table) Get(c Color) (idxset.Set, bool) {
	s, ok := t.sets[c]
	return s, ok
}

// Indices yields the members of c in ascending order. Unknown colors yield nothing.
func (t *Table) Indices(c Color) iter.Seq[uint32] {
	return t.sets[c].All()
}

// Insert stores s under c after checking that c is the color of s.
func (t *Table) Insert(c Color, s idxset.Set) error {
	if got := Of(s); got != c {
		return fmt.Errorf("%w: stored as %s, content digests to %s", ErrColorMismatch, c, got)
	}
	return t.store(c, s)
}

// Update merges members into the set of existing (or into an empty set when
// existing is nil) and returns the color of the result.
func (t *Table) Update(existing *Color, members iter.Seq[uint32]) (Color, error) {
	var s idxset.Set
	if existing != nil {
		cur, ok := t.sets[*existing]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownColor, *existing)
		}
		s = cur.Clone()
		for idx := range members {
			s.Add(idx)
		}
		// Most updates re-add members that are already present.
		if s.Len() == cur.Len() {
			return *existing, nil
		}
	} else {
		s = idxset.FromSeq(members)
	}

	c := Of(s)
	if err := t.store(c, s); err != nil {
		return 0, err
	}
	return c, nil
}

func (t *Table) store(c Color, s idxset.Set) error {
	if prev, ok := t.sets[c]; ok {
		if !prev.Equal(s) {
			return fmt.Errorf("%w: %s holds %v and %v", ErrColorCollision, c, prev, s)
		}
		return nil
	}
	t.sets[c] = s
	return nil
}

// All yields every color and its set in unspecified order.
func (t *Table) All() iter.Seq2[Color, idxset.Set] {
	return maps.All(t.sets)
}
