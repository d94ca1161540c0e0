// Package resource bounds the work an index performs in the background.
//
// A Controller hands out two kinds of capacity:
//
//   - Worker slots: a weighted semaphore limiting how many build batches run
//     at the same time.
//   - IO tokens: a token bucket limiting bytes per second copied while
//     embedding dataset storage into an index.
//
//	rc := resource.NewController(resource.Config{Workers: 4, IOBytesPerSec: 64 << 20})
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
// All methods are safe for concurrent use and a nil Controller imposes no
// limits.
package resource
