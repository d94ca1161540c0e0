package revindex

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hupe1980/revindex/collection"
	"github.com/hupe1980/revindex/internal/kv"
	"github.com/hupe1980/revindex/sketch"
	"github.com/hupe1980/revindex/storage"
	"github.com/hupe1980/revindex/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCollection stores sigs in an in-memory storage named after the test.
func memCollection(t *testing.T, suffix string, sigs []*sketch.Signature) *collection.Collection {
	t.Helper()
	name := fmt.Sprintf("%s/%s", t.Name(), suffix)
	coll, err := collection.FromSignatures(context.Background(), name, sigs)
	require.NoError(t, err)
	t.Cleanup(func() {
		if m, err := storage.LookupMem(name); err == nil {
			m.Unregister()
		}
	})
	return coll
}

func createIndex(t *testing.T, sigs []*sketch.Signature, opts ...Option) (*DiskIndex, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "index")
	idx, err := Create(context.Background(), dir, memCollection(t, "refs", sigs), false, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx.(*DiskIndex), dir
}

func search(t *testing.T, idx Index, sig *sketch.Signature, threshold uint64) []Match {
	t.Helper()
	ctx := context.Background()
	q, err := idx.PrepareQuery(sig, nil)
	require.NoError(t, err)
	counter, err := idx.CounterForQuery(ctx, q)
	require.NoError(t, err)
	matches, err := idx.MatchesFromCounter(counter, threshold)
	require.NoError(t, err)
	return matches
}

// bruteForce counts query hashes per dataset without the index.
func bruteForce(q *sketch.MinHash, refs []*sketch.Signature) SigCounter {
	out := make(SigCounter)
	for i, ref := range refs {
		n, err := ref.MinHash().IntersectionSize(q)
		if err != nil {
			panic(err)
		}
		if n > 0 {
			out[uint32(i)] = uint64(n)
		}
	}
	return out
}

func TestCreateAndSearch(t *testing.T) {
	sigs := testutil.IndexFixture(1)
	idx, _ := createIndex(t, sigs)

	assert.Equal(t, VariantDisk, idx.Variant())
	assert.Equal(t, 3, idx.Collection().Len())
	assert.Equal(t, sketch.Selection{Ksize: testutil.Ksize, Scaled: testutil.Scaled, Moltype: sketch.DNA}, idx.Selection())

	matches := search(t, idx, sigs[0], 1)
	require.Len(t, matches, 1)
	assert.Equal(t, Match{Idx: 0, Name: "genome-a", Count: 48}, matches[0])

	matches = search(t, idx, sigs[1], 1)
	require.Len(t, matches, 2)
	assert.Equal(t, uint32(1), matches[0].Idx)
	assert.Equal(t, uint64(60), matches[0].Count)
	assert.Equal(t, uint32(2), matches[1].Idx)
	assert.Equal(t, uint64(20), matches[1].Count)

	assert.Len(t, search(t, idx, sigs[1], 21), 1)
}

func TestCounterMatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	refs, query := testutil.GatherFixture(3)
	idx, _ := createIndex(t, refs, WithBatchSize(3), WithWorkers(4))

	q, err := idx.PrepareQuery(query, nil)
	require.NoError(t, err)
	counter, err := idx.CounterForQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, bruteForce(q, refs), counter)

	// A single dataset as query.
	q, err = idx.PrepareQuery(refs[11], nil)
	require.NoError(t, err)
	counter, err = idx.CounterForQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, bruteForce(q, refs), counter)
}

func TestBatchSizeDoesNotChangeResults(t *testing.T) {
	ctx := context.Background()
	refs, query := testutil.GatherFixture(4)

	var want SigCounter
	for _, size := range []int{1, 2, 5, 16} {
		idx, _ := createIndex(t, refs, WithBatchSize(size))
		q, err := idx.PrepareQuery(query, nil)
		require.NoError(t, err)
		counter, err := idx.CounterForQuery(ctx, q)
		require.NoError(t, err)
		if want == nil {
			want = counter
			continue
		}
		assert.Equal(t, want, counter, "batch size %d", size)
	}
}

func TestMostCommonOrdering(t *testing.T) {
	c := SigCounter{4: 2, 1: 5, 3: 5, 0: 1}
	assert.Equal(t, []Count{{1, 5}, {3, 5}, {4, 2}, {0, 1}}, c.MostCommon())

	top, ok := c.best()
	require.True(t, ok)
	assert.Equal(t, Count{1, 5}, top)

	_, ok = SigCounter{}.best()
	assert.False(t, ok)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	sigs := testutil.UpdateFixture(2)
	dir := filepath.Join(t.TempDir(), "index")

	idx, err := Create(ctx, dir, memCollection(t, "first", sigs[:2]), false)
	require.NoError(t, err)
	require.NoError(t, idx.Update(ctx, memCollection(t, "all", sigs)))
	require.NoError(t, idx.Close())

	idx, err = Open(ctx, dir, true, "")
	require.NoError(t, err)
	defer idx.Close()

	require.Equal(t, 3, idx.Collection().Len())
	matches := search(t, idx, sigs[2], 1)
	require.Len(t, matches, 2)
	assert.Equal(t, Match{Idx: 2, Name: "genome-c", Count: 45}, matches[0])
	assert.Equal(t, Match{Idx: 1, Name: "genome-b", Count: 10}, matches[1])

	// Shared hashes resolve to both datasets after the update.
	matches = search(t, idx, sigs[1], 1)
	require.Len(t, matches, 2)
	assert.Equal(t, uint64(50), matches[0].Count)
}

func TestUpdateEqualsFullBuild(t *testing.T) {
	ctx := context.Background()
	refs, query := testutil.GatherFixture(5)

	full, _ := createIndex(t, refs)

	dir := filepath.Join(t.TempDir(), "incremental")
	inc, err := Create(ctx, dir, memCollection(t, "part", refs[:5]), false)
	require.NoError(t, err)
	defer inc.Close()
	require.NoError(t, inc.Update(ctx, memCollection(t, "full", refs)))

	for _, idx := range []Index{full, inc} {
		q, err := idx.PrepareQuery(query, nil)
		require.NoError(t, err)
		counter, err := idx.CounterForQuery(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, bruteForce(q, refs), counter)
	}
}

func TestUpdateRequiresSuperset(t *testing.T) {
	ctx := context.Background()
	sigs := testutil.UpdateFixture(6)
	idx, _ := createIndex(t, sigs[:2])

	err := idx.Update(ctx, memCollection(t, "reordered", []*sketch.Signature{sigs[1], sigs[0], sigs[2]}))
	require.ErrorIs(t, err, ErrConfigMismatch)

	err = idx.Update(ctx, memCollection(t, "shorter", sigs[:1]))
	require.ErrorIs(t, err, ErrConfigMismatch)

	other := testutil.Signature("other-k", 21, testutil.Scaled, testutil.NewRNG(7).NewHashPool(testutil.Scaled).Take(10))
	err = idx.Update(ctx, memCollection(t, "ksize", []*sketch.Signature{sigs[0], sigs[1], other}))
	require.ErrorIs(t, err, ErrConfigMismatch)

	// Failed updates leave the index usable.
	assert.Equal(t, 2, idx.Collection().Len())
	assert.Len(t, search(t, idx, sigs[0], 1), 1)
}

func TestCreateRejectsMixedSelection(t *testing.T) {
	pool := testutil.NewRNG(8).NewHashPool(testutil.Scaled)
	sigs := []*sketch.Signature{
		testutil.Signature("a", testutil.Ksize, testutil.Scaled, pool.Take(10)),
		testutil.Signature("b", 21, testutil.Scaled, pool.Take(10)),
	}
	dir := filepath.Join(t.TempDir(), "index")
	_, err := Create(context.Background(), dir, memCollection(t, "mixed", sigs), false)
	require.ErrorIs(t, err, ErrConfigMismatch)
	assert.False(t, kv.Exists(dir))
}

func TestCreateColoredUnsupported(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	_, err := Create(context.Background(), dir, memCollection(t, "refs", testutil.IndexFixture(1)), true)
	require.ErrorIs(t, err, ErrUnsupportedVariant)
	assert.NoDirExists(t, dir)
}

func TestCreateRefusesExistingIndex(t *testing.T) {
	_, dir := createIndex(t, testutil.IndexFixture(1))
	_, err := Create(context.Background(), dir, memCollection(t, "again", testutil.IndexFixture(2)), false)
	require.ErrorIs(t, err, ErrExists)
}

func TestOpenMissing(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, filepath.Join(t.TempDir(), "nope"), true, "")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Open(ctx, t.TempDir(), false, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpenIncompleteBuild(t *testing.T) {
	ctx := context.Background()
	idx, dir := createIndex(t, testutil.IndexFixture(1))
	require.NoError(t, idx.Close())

	db, err := kv.Open(kv.Options{Path: dir, MustExist: true})
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *kv.Tx) error { return putMarker(tx, stateBuilding, 1) }))
	require.NoError(t, db.Close())

	_, err = Open(ctx, dir, true, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpenColorVariant(t *testing.T) {
	ctx := context.Background()
	idx, dir := createIndex(t, testutil.IndexFixture(1))
	require.NoError(t, idx.Close())

	db, err := kv.Open(kv.Options{Path: dir, MustExist: true})
	require.NoError(t, err)
	require.NoError(t, db.CreatePartition(partColorMerges))
	require.NoError(t, db.Close())

	_, err = Open(ctx, dir, true, "")
	require.ErrorIs(t, err, ErrReadOnly)

	_, err = Open(ctx, dir, false, "")
	require.ErrorIs(t, err, ErrUnsupportedVariant)
}

func TestReadOnlyRejectsMutations(t *testing.T) {
	ctx := context.Background()
	sigs := testutil.UpdateFixture(9)
	idx, dir := createIndex(t, sigs[:2])
	require.NoError(t, idx.Close())

	ro, err := Open(ctx, dir, true, "")
	require.NoError(t, err)
	defer ro.Close()

	require.ErrorIs(t, ro.Update(ctx, memCollection(t, "all", sigs)), ErrReadOnly)
	require.ErrorIs(t, ro.InternalizeStorage(ctx), ErrReadOnly)
	require.ErrorIs(t, ro.Compact(ctx), ErrReadOnly)

	// Reads still work.
	assert.Len(t, search(t, ro, sigs[0], 1), 1)
	_, err = ro.Check(ctx, true)
	require.NoError(t, err)
}

func TestClosedIndex(t *testing.T) {
	ctx := context.Background()
	sigs := testutil.IndexFixture(1)
	idx, _ := createIndex(t, sigs)
	q, err := idx.PrepareQuery(sigs[0], nil)
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err = idx.CounterForQuery(ctx, q)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, idx.Flush(), ErrClosed)
}

func TestPrepareQuery(t *testing.T) {
	pool := testutil.NewRNG(10).NewHashPool(testutil.Scaled)
	hashes := pool.Take(200)
	idx, _ := createIndex(t, []*sketch.Signature{testutil.Signature("ref", testutil.Ksize, testutil.Scaled, hashes)})

	// The query carries an extra sketch with another ksize.
	query := sketch.NewSignature("q", "q.fa",
		testutil.MinHash(21, testutil.Scaled, hashes),
		testutil.MinHash(testutil.Ksize, testutil.Scaled, hashes),
	)
	q, err := idx.PrepareQuery(query, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(testutil.Ksize), q.Ksize())
	assert.Equal(t, len(hashes), q.Len())

	coarser := &sketch.Selection{Scaled: 4 * testutil.Scaled}
	q, err = idx.PrepareQuery(query, coarser)
	require.NoError(t, err)
	assert.Equal(t, uint32(4*testutil.Scaled), q.Scaled())
	assert.Less(t, q.Len(), len(hashes))

	_, err = idx.PrepareQuery(query, &sketch.Selection{Ksize: 51})
	require.ErrorIs(t, err, ErrConfigMismatch)

	_, err = idx.PrepareQuery(sketch.NewSignature("q21", "", testutil.MinHash(21, testutil.Scaled, hashes)), nil)
	var sme *SelectionMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, "sketch", sme.Field)
}

func TestQueryMismatch(t *testing.T) {
	ctx := context.Background()
	idx, _ := createIndex(t, testutil.IndexFixture(1))

	q := testutil.MinHash(21, testutil.Scaled, testutil.NewRNG(1).NewHashPool(testutil.Scaled).Take(5))
	_, err := idx.CounterForQuery(ctx, q)
	require.ErrorIs(t, err, ErrConfigMismatch)
	_, err = idx.PrepareGatherCounters(ctx, q)
	require.ErrorIs(t, err, ErrConfigMismatch)
}

func TestMetricsRecorded(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	sigs := testutil.IndexFixture(1)
	idx, _ := createIndex(t, sigs, WithMetricsCollector(metrics))
	search(t, idx, sigs[0], 1)

	st := metrics.GetStats()
	assert.Equal(t, int64(1), st.BuildCount)
	assert.Equal(t, int64(3), st.DatasetsIndexed)
	assert.Equal(t, int64(1), st.QueryCount)
	assert.Equal(t, int64(0), st.QueryErrors)
}

func TestVariantString(t *testing.T) {
	assert.Equal(t, "disk", VariantDisk.String())
	assert.Equal(t, "mem", VariantMem.String())
	assert.Equal(t, "color", VariantColor.String())
	assert.Equal(t, "variant(9)", Variant(9).String())
}
