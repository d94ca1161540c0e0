// Package testutil provides testing utilities for revindex.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic sketch generators and reference collections
// with known query answers.
//
// # Random Sketches
//
//	rng := testutil.NewRNG(seed)
//	pool := rng.NewHashPool(1000)
//	sig := testutil.Signature("ref", 31, 1000, pool.Take(50))
//
// Hashes taken from one pool never repeat, so overlaps between datasets are
// exactly the hashes a test shares on purpose.
//
// # Fixtures
//
//	refs := testutil.IndexFixture(seed)          // query refs[0] → one match, count 48
//	refs := testutil.UpdateFixture(seed)         // query refs[2] → top match, count 45
//	refs, query := testutil.GatherFixture(seed)  // threshold 5 → 11 matches
package testutil
