package revindex

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/revindex/collection"
	"github.com/hupe1980/revindex/internal/kv"
	"github.com/hupe1980/revindex/internal/resource"
	"github.com/hupe1980/revindex/sketch"
	"github.com/hupe1980/revindex/storage"
)

// DiskIndex is the persistent reverse index. Hash → color and color → set
// mappings live in separate partitions of a badger database.
type DiskIndex struct {
	mu sync.RWMutex

	db       *kv.DB
	path     string
	readOnly bool
	closed   bool

	coll *collection.Collection
	sel  sketch.Selection

	opts   options
	logger *Logger
	rc     *resource.Controller
}

func newDiskIndex(db *kv.DB, path string, readOnly bool, o options) *DiskIndex {
	return &DiskIndex{
		db:       db,
		path:     path,
		readOnly: readOnly,
		opts:     o,
		logger:   o.logger.WithPath(path),
		rc: resource.NewController(resource.Config{
			Workers:       o.workers,
			IOBytesPerSec: o.ioBytesPerSec,
		}),
	}
}

func createDisk(ctx context.Context, path string, coll *collection.Collection, o options) (d *DiskIndex, err error) {
	start := time.Now()
	datasets := 0
	if coll != nil {
		datasets = coll.Len()
	}
	defer func() {
		if coll != nil {
			o.metricsCollector.RecordBuild(datasets, time.Since(start), err)
		}
	}()

	if kv.Exists(path) {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}

	var sel sketch.Selection
	if coll != nil {
		if sel, err = coll.Selection(); err != nil {
			return nil, translateError(err)
		}
	}

	before, err := dirEntries(path)
	if err != nil {
		return nil, err
	}

	db, err := kv.Open(kv.Options{Path: path, SyncWrites: o.syncWrites, Logger: o.logger.Logger})
	if err != nil {
		return nil, err
	}

	d = newDiskIndex(db, path, false, o)
	d.sel = sel

	hashes, err := d.initialize(ctx, coll)
	if coll != nil {
		d.logger.LogCreate(ctx, datasets, hashes, err)
	}
	if err != nil {
		_ = db.Close()
		removeCreated(path, before)
		return nil, translateError(err)
	}
	return d, nil
}

// dirEntries lists path so a failed create can remove exactly what it added.
// A missing directory yields nil.
func dirEntries(path string) (map[string]bool, error) {
	entries, err := os.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		out[e.Name()] = true
	}
	return out, nil
}

func removeCreated(path string, before map[string]bool) {
	if before == nil {
		_ = os.RemoveAll(path)
		return
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !before[e.Name()] {
			_ = os.RemoveAll(filepath.Join(path, e.Name()))
		}
	}
}

// initialize lays out an empty index and, when coll is set, indexes it.
func (d *DiskIndex) initialize(ctx context.Context, coll *collection.Collection) (int, error) {
	for _, p := range diskPartitions {
		if err := d.db.CreatePartition(p); err != nil {
			return 0, err
		}
	}

	if err := d.db.Update(func(tx *kv.Tx) error {
		if err := tx.Set(partMetadata, keyVersion, binary.LittleEndian.AppendUint32(nil, FormatVersion)); err != nil {
			return err
		}
		if err := tx.Set(partMetadata, keyCodec, []byte(d.opts.codec.Name())); err != nil {
			return err
		}
		return putMarker(tx, stateBuilding, 0)
	}); err != nil {
		return 0, err
	}

	if coll == nil {
		coll = collection.New(collection.NewManifest(nil), nil)
	}

	hashes, err := d.build(ctx, coll, 0)
	if err != nil {
		return 0, err
	}
	if err := d.commitCollection(coll); err != nil {
		return 0, err
	}
	d.coll = coll
	return hashes, nil
}

// commitCollection records coll and marks the index complete in one
// transaction.
func (d *DiskIndex) commitCollection(coll *collection.Collection) error {
	if err := d.db.Update(func(tx *kv.Tx) error {
		if err := putCollection(tx, d.opts.codec, coll, d.sel); err != nil {
			return err
		}
		return putMarker(tx, stateComplete, coll.Len())
	}); err != nil {
		return err
	}
	return d.db.Sync()
}

func openDisk(ctx context.Context, path string, readOnly bool, storageSpec string, o options) (*DiskIndex, error) {
	if !kv.Exists(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	db, err := kv.Open(kv.Options{
		Path:       path,
		MustExist:  true,
		ReadOnly:   readOnly,
		SyncWrites: o.syncWrites,
		Logger:     o.logger.Logger,
	})
	if errors.Is(err, kv.ErrNoDatabase) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return nil, err
	}

	d := newDiskIndex(db, path, readOnly, o)
	if err := d.load(ctx, storageSpec); err != nil {
		_ = db.Close()
		return nil, translateError(err)
	}
	return d, nil
}

func (d *DiskIndex) load(ctx context.Context, storageSpec string) error {
	parts, err := d.db.Partitions()
	if err != nil {
		return err
	}
	if slices.Contains(parts, partColorMerges) {
		if d.readOnly {
			return fmt.Errorf("%w: %s index with pending merges cannot be opened read-only", ErrReadOnly, VariantColor)
		}
		return fmt.Errorf("%w: %s", ErrUnsupportedVariant, VariantColor)
	}

	md, err := readMetadata(d.db)
	if err != nil {
		return err
	}
	d.opts.codec = md.codec
	d.sel = md.sel

	spec, override := md.spec, storageSpec != ""
	if override {
		spec = storageSpec
	}
	st, err := d.openStorage(ctx, spec, override)
	if err != nil {
		return err
	}
	d.coll = collection.New(md.manifest, st)

	d.logger.DebugContext(ctx, "index opened",
		"datasets", md.manifest.Len(),
		"selection", md.sel.String(),
		"storage", spec,
		"read_only", d.readOnly,
	)
	return nil
}

// openStorage resolves spec. Embedded storage recorded by this index is
// served from the already open database wherever the index now lives.
func (d *DiskIndex) openStorage(ctx context.Context, spec string, override bool) (storage.Storage, error) {
	if spec == "" {
		return nil, nil
	}
	scheme, location, err := storage.ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	if scheme == storage.SchemeBadger && (!override || samePath(location, d.path)) {
		return storage.NewKV(d.db, d.opts.compression), nil
	}

	st, err := storage.FromSpec(ctx, spec)
	if errors.Is(err, storage.ErrNotFound) {
		if override {
			return nil, fmt.Errorf("%w: storage %s: %w", ErrNotFound, spec, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrMovedStorage, spec, err)
	}
	return st, err
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

// Variant implements Index.
func (d *DiskIndex) Variant() Variant { return VariantDisk }

// Path returns the index directory.
func (d *DiskIndex) Path() string { return d.path }

// ReadOnly reports whether the handle was opened read-only.
func (d *DiskIndex) ReadOnly() bool { return d.readOnly }

// Collection implements Index.
func (d *DiskIndex) Collection() *collection.Collection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.coll
}

// Selection implements Index.
func (d *DiskIndex) Selection() sketch.Selection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sel
}

// writable must be called with d.mu held for writing.
func (d *DiskIndex) writable() error {
	if d.closed {
		return ErrClosed
	}
	if d.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Update indexes the records coll appends to the current collection. coll
// must start with every current record in the same order. Its storage
// replaces the current one.
func (d *DiskIndex) Update(ctx context.Context, coll *collection.Collection) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	added := 0
	defer func() {
		d.opts.metricsCollector.RecordUpdate(added, time.Since(start), err)
		d.logger.LogUpdate(ctx, added, d.coll.Len(), err)
	}()

	if err := d.writable(); err != nil {
		return err
	}

	from, err := d.coll.CheckSuperset(coll)
	if err != nil {
		return translateError(err)
	}
	sel, err := coll.Selection()
	if err != nil {
		return translateError(err)
	}
	if from > 0 && sel != d.sel {
		return &SelectionMismatchError{Field: "selection", Expected: d.sel.String(), Actual: sel.String()}
	}
	added = coll.Len() - from

	if err := d.db.Update(func(tx *kv.Tx) error {
		return putMarker(tx, stateBuilding, from)
	}); err != nil {
		return err
	}

	prevSel := d.sel
	d.sel = sel
	if _, err := d.build(ctx, coll, from); err != nil {
		d.sel = prevSel
		// Failures before persisting leave the stored mappings untouched.
		if !errors.Is(err, errPersist) {
			_ = d.db.Update(func(tx *kv.Tx) error { return putMarker(tx, stateComplete, from) })
		}
		return translateError(err)
	}
	if err := d.commitCollection(coll); err != nil {
		return err
	}

	if old := d.coll.Storage(); old != nil && old != coll.Storage() {
		_ = old.Close()
	}
	d.coll = coll
	return nil
}

// Compact implements Index.
func (d *DiskIndex) Compact(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writable(); err != nil {
		return err
	}
	start := time.Now()
	err := d.db.Compact()
	d.logger.InfoContext(ctx, "compaction finished", "duration", time.Since(start), "error", err)
	return err
}

// Flush implements Index.
func (d *DiskIndex) Flush() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return d.db.Sync()
}

// Close implements Index. It closes the dataset storage as well.
func (d *DiskIndex) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var firstErr error
	if d.coll != nil && d.coll.Storage() != nil {
		if err := d.coll.Storage().Close(); err != nil {
			firstErr = err
		}
	}
	if err := d.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
