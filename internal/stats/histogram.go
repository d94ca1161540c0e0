// Package stats holds the set-size histogram reported by index checks.
package stats

import (
	"fmt"
	"math/bits"
	"strings"
)

// MaxExp is the exponent of the largest bounded bucket. Sizes of 2^MaxExp and
// above land in the overflow bucket.
const MaxExp = 16

// Histogram counts values in power-of-two buckets.
//
// Bucket 0 holds 0, bucket i (1 ≤ i ≤ MaxExp) holds [2^(i-1), 2^i) and the last
// bucket holds everything ≥ 2^MaxExp.
type Histogram struct {
	Buckets [MaxExp + 2]uint64 `json:"buckets"`
	Count   uint64             `json:"count"`
	Sum     uint64             `json:"sum"`
	Max     uint64             `json:"max"`
}

// Increment records one value.
func (h *Histogram) Increment(v uint64) {
	h.Buckets[bucket(v)]++
	h.Count++
	h.Sum += v
	h.Max = max(h.Max, v)
}

// Merge adds the counts of other.
func (h *Histogram) Merge(other *Histogram) {
	for i, n := range other.Buckets {
		h.Buckets[i] += n
	}
	h.Count += other.Count
	h.Sum += other.Sum
	h.Max = max(h.Max, other.Max)
}

// Mean returns the average recorded value.
func (h *Histogram) Mean() float64 {
	if h.Count == 0 {
		return 0
	}
	return float64(h.Sum) / float64(h.Count)
}

// Bounds returns the inclusive value range of bucket i. The overflow bucket
// reports its upper bound as the largest value seen.
func (h *Histogram) Bounds(i int) (lo, hi uint64) {
	switch {
	case i == 0:
		return 0, 0
	case i <= MaxExp:
		return 1 << (i - 1), 1<<i - 1
	default:
		return 1 << MaxExp, max(h.Max, 1<<MaxExp)
	}
}

func (h *Histogram) String() string {
	var sb strings.Builder
	for i, n := range h.Buckets {
		if n == 0 {
			continue
		}
		lo, hi := h.Bounds(i)
		fmt.Fprintf(&sb, "[%d, %d]: %d\n", lo, hi, n)
	}
	return sb.String()
}

func bucket(v uint64) int {
	if v == 0 {
		return 0
	}
	return min(bits.Len64(v), MaxExp+1)
}
