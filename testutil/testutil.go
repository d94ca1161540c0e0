package testutil

import (
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/revindex/sketch"
)

// Default sketch parameters of the fixtures.
const (
	Ksize  uint32 = 31
	Scaled uint32 = 1000
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64n returns a pseudo-random number in [0,n).
func (r *RNG) Uint64n(n uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n == 0 {
		return r.rand.Uint64()
	}
	return r.rand.Uint64() % n
}

// HashPool hands out distinct hash values below the max hash of a scaled value.
type HashPool struct {
	rng     *RNG
	maxHash uint64
	seen    map[uint64]struct{}
}

// NewHashPool returns a pool for sketches at scaled.
func (r *RNG) NewHashPool(scaled uint32) *HashPool {
	return &HashPool{rng: r, maxHash: sketch.MaxHashForScaled(scaled), seen: make(map[uint64]struct{})}
}

// Take returns n hashes never returned before, in ascending order.
func (p *HashPool) Take(n int) []uint64 {
	out := make([]uint64, 0, n)
	for len(out) < n {
		h := p.rng.Uint64n(p.maxHash)
		if _, dup := p.seen[h]; dup {
			continue
		}
		p.seen[h] = struct{}{}
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// MinHash builds a DNA sketch holding every hash of parts.
func MinHash(ksize, scaled uint32, parts ...[]uint64) *sketch.MinHash {
	mh := sketch.NewMinHash(ksize, scaled, sketch.DNA, false)
	for _, p := range parts {
		mh.AddMany(p)
	}
	return mh
}

// Signature wraps MinHash(ksize, scaled, parts...) into a signature called name.
func Signature(name string, ksize, scaled uint32, parts ...[]uint64) *sketch.Signature {
	return sketch.NewSignature(name, name+".fa", MinHash(ksize, scaled, parts...))
}

// AbundanceSignature builds an abundance tracking signature where hash i has
// abundance abund(i).
func AbundanceSignature(name string, ksize, scaled uint32, hashes []uint64, abund func(i int) uint64) *sketch.Signature {
	mh := sketch.NewMinHash(ksize, scaled, sketch.DNA, true)
	for i, h := range hashes {
		mh.AddAbundance(h, abund(i))
	}
	return sketch.NewSignature(name, name+".fa", mh)
}
