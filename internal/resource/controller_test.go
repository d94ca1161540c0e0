package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Workers(t *testing.T) {
	c := NewController(Config{Workers: 2})
	assert.Equal(t, 2, c.Workers())

	ctx := context.Background()
	require.NoError(t, c.AcquireWorker(ctx))
	require.NoError(t, c.AcquireWorker(ctx))
	assert.False(t, c.TryAcquireWorker())

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireWorker(ctx), context.DeadlineExceeded)

	c.ReleaseWorker()
	assert.True(t, c.TryAcquireWorker())
}

func TestController_DefaultWorkers(t *testing.T) {
	c := NewController(Config{})
	assert.Positive(t, c.Workers())
}

func TestController_IOLimit(t *testing.T) {
	c := NewController(Config{IOBytesPerSec: 1000})

	ctx := context.Background()
	start := time.Now()
	// The first burst is free; the next 500 bytes take about half a second.
	require.NoError(t, c.AcquireIO(ctx, 1500))
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	assert.Equal(t, int64(1500), c.IOBytes())
}

func TestController_IOLimitCanceled(t *testing.T) {
	c := NewController(Config{IOBytesPerSec: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, c.AcquireIO(ctx, 100))
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	ctx := context.Background()

	require.NoError(t, c.AcquireWorker(ctx))
	assert.True(t, c.TryAcquireWorker())
	c.ReleaseWorker()
	require.NoError(t, c.AcquireIO(ctx, 1<<30))
	assert.Zero(t, c.IOBytes())
	assert.Positive(t, c.Workers())
}
