package revindex

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/revindex/internal/kv"
	"github.com/hupe1980/revindex/storage"
)

// convertBatchSize bounds the writes buffered per batch commit.
const convertBatchSize = 100_000

// Convert copies every partition of d into target, which must be an empty,
// writable DiskIndex. Embedded dataset storage is copied along and rebound to
// target; external storage is reopened from its spec.
func (d *DiskIndex) Convert(ctx context.Context, target Index) (err error) {
	dst, ok := target.(*DiskIndex)
	if !ok {
		return fmt.Errorf("%w: cannot convert into %s index", ErrUnsupportedVariant, target.Variant())
	}
	if dst == d {
		return fmt.Errorf("%w: cannot convert an index into itself", ErrConfigMismatch)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	dst.mu.Lock()
	defer dst.mu.Unlock()

	start := time.Now()
	defer func() {
		d.logger.InfoContext(ctx, "conversion finished",
			"target", dst.path,
			"datasets", d.coll.Len(),
			"duration", time.Since(start),
			"error", err,
		)
	}()

	if err := d.readable(); err != nil {
		return err
	}
	if err := dst.writable(); err != nil {
		return err
	}
	if dst.coll.Len() > 0 {
		return fmt.Errorf("%w: target %s already holds %d datasets", ErrConfigMismatch, dst.path, dst.coll.Len())
	}
	if n, err := dst.db.Count(partHashes); err != nil {
		return err
	} else if n > 0 {
		return fmt.Errorf("%w: target %s already holds %d hashes", ErrConfigMismatch, dst.path, n)
	}

	if err := dst.db.Update(func(tx *kv.Tx) error {
		return putMarker(tx, stateBuilding, 0)
	}); err != nil {
		return err
	}

	for _, p := range diskPartitions {
		if err := dst.db.CreatePartition(p); err != nil {
			return err
		}
		if err := copyPartition(ctx, d.db, dst.db, p); err != nil {
			return fmt.Errorf("copy partition %s: %w", p, err)
		}
	}

	spec := ""
	if st := d.coll.Storage(); st != nil {
		spec = st.Spec()
		if scheme, _, err := storage.ParseSpec(spec); err == nil && scheme == storage.SchemeBadger {
			spec = storage.NewKV(dst.db, dst.opts.compression).Spec()
		}
	}
	if err := dst.db.Update(func(tx *kv.Tx) error {
		if err := tx.Set(partMetadata, keyStorageSpec, []byte(spec)); err != nil {
			return err
		}
		return putMarker(tx, stateComplete, d.coll.Len())
	}); err != nil {
		return err
	}
	if err := dst.db.Sync(); err != nil {
		return err
	}

	if old := dst.coll.Storage(); old != nil {
		_ = old.Close()
	}
	return translateError(dst.load(ctx, ""))
}

// copyPartition copies every key of partition from src to dst except the
// processed marker, which the caller owns.
func copyPartition(ctx context.Context, src, dst *kv.DB, partition string) error {
	b := dst.NewBatch()
	err := src.Iterate(partition, func(key, value []byte) error {
		if partition == partMetadata && bytes.Equal(key, keyProcessed) {
			return nil
		}
		if err := b.Set(partition, bytes.Clone(key), bytes.Clone(value)); err != nil {
			return err
		}
		if b.Len() < convertBatchSize {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.Commit(); err != nil {
			return err
		}
		b = dst.NewBatch()
		return nil
	})
	if err != nil {
		b.Cancel()
		return err
	}
	return b.Commit()
}
