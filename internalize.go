package revindex

import (
	"context"
	"fmt"

	"github.com/hupe1980/revindex/internal/kv"
	"github.com/hupe1980/revindex/storage"
)

// InternalizeStorage copies every dataset blob into the index and points the
// collection at the embedded copy. Afterwards the index directory can be
// moved without breaking dataset lookups.
func (d *DiskIndex) InternalizeStorage(ctx context.Context) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	blobs := 0
	var copied int64
	spec := ""
	defer func() {
		d.logger.LogInternalize(ctx, spec, blobs, copied, err)
	}()

	if err := d.writable(); err != nil {
		return err
	}

	src := d.coll.Storage()
	dst := storage.NewKV(d.db, d.opts.compression)
	spec = dst.Spec()
	if src == nil {
		return nil
	}
	if scheme, location, err := storage.ParseSpec(src.Spec()); err == nil && scheme == storage.SchemeBadger && samePath(location, d.path) {
		return nil
	}

	for _, loc := range d.coll.Locations() {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := src.Load(ctx, loc)
		if err != nil {
			return fmt.Errorf("load %s: %w", loc, translateError(err))
		}
		if err := d.rc.AcquireIO(ctx, len(data)); err != nil {
			return err
		}
		if _, err := dst.Save(ctx, loc, data); err != nil {
			return fmt.Errorf("save %s: %w", loc, translateError(err))
		}
		blobs++
		copied += int64(len(data))
	}

	if err := d.db.Update(func(tx *kv.Tx) error {
		return tx.Set(partMetadata, keyStorageSpec, []byte(spec))
	}); err != nil {
		return err
	}
	if err := d.db.Sync(); err != nil {
		return err
	}

	d.logger.DebugContext(ctx, "storage swapped", "previous", src.Spec())
	_ = src.Close()
	d.coll = d.coll.WithStorage(dst)
	return nil
}
