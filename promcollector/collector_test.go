package promcollector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/revindex"
	"github.com/hupe1980/revindex/collection"
	"github.com/hupe1980/revindex/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New("revindex")
	require.NoError(t, reg.Register(c))

	c.RecordBuild(3, time.Millisecond, nil)
	c.RecordUpdate(2, time.Millisecond, nil)
	c.RecordQuery(100, 4, time.Millisecond, nil)
	c.RecordQuery(100, 0, time.Millisecond, errors.New("boom"))
	c.RecordGather(5, time.Millisecond, nil)
	c.RecordCheck(42, time.Millisecond, nil)

	assert.Equal(t, 1.0, promtest.ToFloat64(c.ops.WithLabelValues("build")))
	assert.Equal(t, 2.0, promtest.ToFloat64(c.ops.WithLabelValues("query")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.errors.WithLabelValues("query")))
	assert.Equal(t, 5.0, promtest.ToFloat64(c.datasets))
	assert.Equal(t, 42.0, promtest.ToFloat64(c.keys))

	n, err := promtest.GatherAndCount(reg, "revindex_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCollectorWithIndex(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := New("revindex")
	reg.MustRegister(c)

	refs, query := testutil.GatherFixture(1)
	coll, err := collection.FromSignatures(ctx, t.Name(), refs)
	require.NoError(t, err)

	idx, err := revindex.Create(ctx, filepath.Join(t.TempDir(), "index"), coll, false, revindex.WithMetricsCollector(c))
	require.NoError(t, err)
	defer idx.Close()

	q, err := idx.PrepareQuery(query, nil)
	require.NoError(t, err)
	counters, err := idx.PrepareGatherCounters(ctx, q)
	require.NoError(t, err)
	_, err = idx.Gather(ctx, counters, testutil.GatherThreshold, q, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(c.ops.WithLabelValues("build")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.ops.WithLabelValues("gather")))
	assert.Equal(t, float64(len(refs)), promtest.ToFloat64(c.datasets))
}
