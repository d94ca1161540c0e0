package revindex

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/hupe1980/revindex/collection"
	"github.com/hupe1980/revindex/internal/color"
	"github.com/hupe1980/revindex/internal/idxset"
	"github.com/hupe1980/revindex/sketch"
	"github.com/hupe1980/revindex/storage"
)

var (
	// ErrConfigMismatch is returned when sketch parameters or collections are
	// incompatible with an index.
	ErrConfigMismatch = errors.New("revindex: configuration mismatch")

	// ErrNotFound is returned when no complete index exists at a location.
	ErrNotFound = errors.New("revindex: index not found")

	// ErrReadOnly is returned by mutating calls on read-only handles.
	ErrReadOnly = errors.New("revindex: index is read-only")

	// ErrUnsupportedVariant is returned for index variants that are not implemented.
	ErrUnsupportedVariant = errors.New("revindex: unsupported index variant")

	// ErrCorruptEntry is returned when a stored entry cannot be decoded or resolved.
	ErrCorruptEntry = errors.New("revindex: corrupt entry")

	// ErrMovedStorage is returned when the dataset storage recorded in an index
	// cannot be found. Reopen with a storage spec override.
	ErrMovedStorage = errors.New("revindex: dataset storage moved")

	// ErrExists is returned by Create when the location already holds an index.
	ErrExists = errors.New("revindex: index already exists")

	// ErrClosed is returned by calls on a closed index.
	ErrClosed = errors.New("revindex: index is closed")
)

// SelectionMismatchError indicates a query or collection whose sketch
// parameters differ from the index.
//
// It matches ErrConfigMismatch with errors.Is.
type SelectionMismatchError struct {
	Field    string
	Expected any
	Actual   any
	cause    error
}

func (e *SelectionMismatchError) Error() string {
	return fmt.Sprintf("selection mismatch: %s expected %v, got %v", e.Field, e.Expected, e.Actual)
}

func (e *SelectionMismatchError) Is(target error) bool { return target == ErrConfigMismatch }

func (e *SelectionMismatchError) Unwrap() error { return e.cause }

// CorruptEntryError identifies the stored entry a check or query failed on.
//
// It matches ErrCorruptEntry with errors.Is.
type CorruptEntryError struct {
	Partition string
	Key       []byte
	cause     error
}

func (e *CorruptEntryError) Error() string {
	msg := fmt.Sprintf("corrupt entry in %s at key %s", e.Partition, hex.EncodeToString(e.Key))
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *CorruptEntryError) Is(target error) bool { return target == ErrCorruptEntry }

func (e *CorruptEntryError) Unwrap() error { return e.cause }

func corruptEntry(partition string, key []byte, cause error) error {
	return &CorruptEntryError{Partition: partition, Key: append([]byte(nil), key...), cause: cause}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already classified.
	for _, sentinel := range []error{
		ErrConfigMismatch, ErrNotFound, ErrReadOnly, ErrUnsupportedVariant,
		ErrCorruptEntry, ErrMovedStorage, ErrExists, ErrClosed,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	var mm *sketch.MismatchError
	if errors.As(err, &mm) {
		return &SelectionMismatchError{Field: mm.Field, Expected: mm.Expected, Actual: mm.Actual, cause: err}
	}
	if errors.Is(err, sketch.ErrIncompatible) ||
		errors.Is(err, collection.ErrMixedSelection) ||
		errors.Is(err, collection.ErrNotSuperset) ||
		errors.Is(err, collection.ErrEmpty) {
		return fmt.Errorf("%w: %w", ErrConfigMismatch, err)
	}

	if errors.Is(err, idxset.ErrCorrupt) ||
		errors.Is(err, color.ErrUnknownColor) ||
		errors.Is(err, color.ErrColorMismatch) ||
		errors.Is(err, color.ErrColorCollision) {
		return fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}

	if errors.Is(err, storage.ErrReadOnly) {
		return fmt.Errorf("%w: %w", ErrReadOnly, err)
	}

	return err
}
