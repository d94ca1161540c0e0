package revindex

import (
	"context"
	"fmt"

	"github.com/hupe1980/revindex/collection"
	"github.com/hupe1980/revindex/sketch"
)

// Variant identifies an index backend.
type Variant int

const (
	// VariantDisk is the persistent hash → color index.
	VariantDisk Variant = iota
	// VariantMem is a fully in-memory index. Not implemented.
	VariantMem
	// VariantColor keeps pending color merges on disk. Not implemented.
	VariantColor
)

func (v Variant) String() string {
	switch v {
	case VariantDisk:
		return "disk"
	case VariantMem:
		return "mem"
	case VariantColor:
		return "color"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Index is a reverse index over a collection of sketches.
//
// The variant set is closed: DiskIndex, MemIndex and ColorIndex. Only
// DiskIndex is implemented; the others return ErrUnsupportedVariant.
type Index interface {
	// Variant reports the backend.
	Variant() Variant
	// Collection returns the indexed collection.
	Collection() *collection.Collection
	// Selection returns the sketch parameters shared by every dataset.
	Selection() sketch.Selection

	// Update indexes the records coll adds to the current collection.
	Update(ctx context.Context, coll *collection.Collection) error
	// Compact reclaims space in the underlying store.
	Compact(ctx context.Context) error
	// Flush makes every previous write durable.
	Flush() error
	// Convert copies this index into target.
	Convert(ctx context.Context, target Index) error
	// Check scans the index and reports statistics.
	Check(ctx context.Context, quick bool) (*DBStats, error)
	// InternalizeStorage embeds every dataset into the index.
	InternalizeStorage(ctx context.Context) error

	// PrepareQuery picks the sketch of sig usable against this index.
	PrepareQuery(sig *sketch.Signature, sel *sketch.Selection) (*sketch.MinHash, error)
	// CounterForQuery counts the query hashes contained in every dataset.
	CounterForQuery(ctx context.Context, q *sketch.MinHash) (SigCounter, error)
	// MatchesFromCounter ranks the datasets with at least threshold hashes.
	MatchesFromCounter(counter SigCounter, threshold uint64) ([]Match, error)
	// PrepareGatherCounters resolves the query once for Gather.
	PrepareGatherCounters(ctx context.Context, q *sketch.MinHash) (*GatherCounters, error)
	// Gather greedily decomposes q into datasets.
	Gather(ctx context.Context, counters *GatherCounters, threshold uint64, q *sketch.MinHash, sel *sketch.Selection) ([]GatherResult, error)

	// Close releases the index and its dataset storage.
	Close() error
}

var (
	_ Index = (*DiskIndex)(nil)
	_ Index = (*MemIndex)(nil)
	_ Index = (*ColorIndex)(nil)
)

// Create builds a new index at path from coll.
//
// Every record of coll must use the same ksize, scaled and molecule type.
// colored selects the color-merge variant, which is not implemented. If the
// build fails nothing is left at path. The index takes ownership of the
// collection's storage.
func Create(ctx context.Context, path string, coll *collection.Collection, colored bool, optFns ...Option) (Index, error) {
	if colored {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariant, VariantColor)
	}
	return createDisk(ctx, path, coll, applyOptions(optFns))
}

// CreateEmpty creates a writable index with no datasets, to be filled by
// Convert or Update.
func CreateEmpty(ctx context.Context, path string, optFns ...Option) (*DiskIndex, error) {
	return createDisk(ctx, path, nil, applyOptions(optFns))
}

// Open opens the index at path.
//
// storageSpec, when not empty, replaces the dataset storage recorded in the
// index for this handle only. Without it, a recorded storage that no longer
// exists fails with ErrMovedStorage.
func Open(ctx context.Context, path string, readOnly bool, storageSpec string, optFns ...Option) (Index, error) {
	return openDisk(ctx, path, readOnly, storageSpec, applyOptions(optFns))
}
