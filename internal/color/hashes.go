package color

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// HashToColor maps sketch hash values to colors.
type HashToColor struct {
	m map[uint64]Color
}

// NewHashToColor returns an empty mapping.
func NewHashToColor() *HashToColor {
	return &HashToColor{m: make(map[uint64]Color)}
}

// Len returns the number of mapped hashes.
func (h *HashToColor) Len() int { return len(h.m) }

// Get returns the color of hash.
func (h *HashToColor) Get(hash uint64) (Color, bool) {
	c, ok := h.m[hash]
	return c, ok
}

// Set maps hash to c.
func (h *HashToColor) Set(hash uint64, c Color) { h.m[hash] = c }

// All yields every mapping in unspecified order.
func (h *HashToColor) All() iter.Seq2[uint64, Color] {
	return maps.All(h.m)
}

// SortedHashes returns the mapped hashes in ascending order.
func (h *HashToColor) SortedHashes() []uint64 {
	return slices.Sorted(maps.Keys(h.m))
}

// Add records that dataset idx contains every hash in hashes.
func (h *HashToColor) Add(t *Table, idx uint32, hashes []uint64) error {
	member := func(yield func(uint32) bool) { yield(idx) }
	for _, hv := range hashes {
		var cur *Color
		if c, ok := h.m[hv]; ok {
			cur = &c
		}
		c, err := t.Update(cur, member)
		if err != nil {
			return fmt.Errorf("hash %d: %w", hv, err)
		}
		h.m[hv] = c
	}
	return nil
}

// Pair is a hash mapping together with the table resolving its colors.
type Pair struct {
	Hashes *HashToColor
	Colors *Table
}

// NewPair returns an empty pair.
func NewPair() Pair {
	return Pair{Hashes: NewHashToColor(), Colors: NewTable()}
}

// Reduce merges two pairs. The pair with fewer hashes is folded into the
// larger one, which keeps repeated reductions near linear in the total number
// of hashes. Both inputs must not be used afterwards.
func Reduce(a, b Pair) (Pair, error) {
	small, large := a, b
	if a.Hashes.Len() > b.Hashes.Len() {
		small, large = b, a
	}

	for hv, c := range small.Hashes.All() {
		members := small.Colors.Indices(c)
		if existing, ok := large.Hashes.Get(hv); ok {
			merged, err := large.Colors.Update(&existing, members)
			if err != nil {
				return Pair{}, fmt.Errorf("merge hash %d: %w", hv, err)
			}
			large.Hashes.Set(hv, merged)
			continue
		}

		derived, err := large.Colors.Update(nil, members)
		if err != nil {
			return Pair{}, fmt.Errorf("copy hash %d: %w", hv, err)
		}
		if derived != c {
			return Pair{}, fmt.Errorf("%w: hash %d derived %s, expected %s", ErrColorMismatch, hv, derived, c)
		}
		large.Hashes.Set(hv, derived)
	}

	return large, nil
}

// ReduceAll merges pairs with a balanced pairwise reduction.
func ReduceAll(pairs []Pair) (Pair, error) {
	if len(pairs) == 0 {
		return NewPair(), nil
	}
	for len(pairs) > 1 {
		next := make([]Pair, 0, (len(pairs)+1)/2)
		for i := 0; i < len(pairs); i += 2 {
			if i+1 == len(pairs) {
				next = append(next, pairs[i])
				continue
			}
			merged, err := Reduce(pairs[i], pairs[i+1])
			if err != nil {
				return Pair{}, err
			}
			next = append(next, merged)
		}
		pairs = next
	}
	return pairs[0], nil
}

// Referenced returns the colors reachable from the hash mapping.
func (p Pair) Referenced() map[Color]struct{} {
	out := make(map[Color]struct{}, p.Colors.Len())
	for _, c := range p.Hashes.All() {
		out[c] = struct{}{}
	}
	return out
}
