package revindex

import (
	"context"
	"fmt"

	"github.com/hupe1980/revindex/collection"
	"github.com/hupe1980/revindex/sketch"
)

// MemIndex is the in-memory index variant. It is not implemented; every
// operation fails with ErrUnsupportedVariant.
type MemIndex struct{ unsupported }

// NewMemIndex returns a MemIndex handle.
func NewMemIndex() *MemIndex { return &MemIndex{unsupported{VariantMem}} }

// ColorIndex is the variant that stages color merges on disk. It is not
// implemented; every operation fails with ErrUnsupportedVariant.
type ColorIndex struct{ unsupported }

// NewColorIndex returns a ColorIndex handle.
func NewColorIndex() *ColorIndex { return &ColorIndex{unsupported{VariantColor}} }

type unsupported struct {
	variant Variant
}

func (u unsupported) err() error {
	return fmt.Errorf("%w: %s", ErrUnsupportedVariant, u.variant)
}

func (u unsupported) Variant() Variant                   { return u.variant }
func (u unsupported) Collection() *collection.Collection { return nil }
func (u unsupported) Selection() sketch.Selection        { return sketch.Selection{} }

func (u unsupported) Update(context.Context, *collection.Collection) error { return u.err() }
func (u unsupported) Compact(context.Context) error                        { return u.err() }
func (u unsupported) Flush() error                                         { return u.err() }
func (u unsupported) Convert(context.Context, Index) error                 { return u.err() }
func (u unsupported) InternalizeStorage(context.Context) error             { return u.err() }
func (u unsupported) Close() error                                         { return nil }

func (u unsupported) Check(context.Context, bool) (*DBStats, error) { return nil, u.err() }

func (u unsupported) PrepareQuery(*sketch.Signature, *sketch.Selection) (*sketch.MinHash, error) {
	return nil, u.err()
}

func (u unsupported) CounterForQuery(context.Context, *sketch.MinHash) (SigCounter, error) {
	return nil, u.err()
}

func (u unsupported) MatchesFromCounter(SigCounter, uint64) ([]Match, error) {
	return nil, u.err()
}

func (u unsupported) PrepareGatherCounters(context.Context, *sketch.MinHash) (*GatherCounters, error) {
	return nil, u.err()
}

func (u unsupported) Gather(context.Context, *GatherCounters, uint64, *sketch.MinHash, *sketch.Selection) ([]GatherResult, error) {
	return nil, u.err()
}
