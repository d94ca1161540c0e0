package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hupe1980/revindex/internal/compress"
	"github.com/hupe1980/revindex/internal/kv"
)

// Partition is the key-value partition embedded blobs live in.
const Partition = "storage"

// KV stores blobs inside a reverse index database. Values are compressed
// blocks carrying a CRC32C of the original bytes.
type KV struct {
	db          *kv.DB
	path        string
	owned       bool
	compression compress.Type
}

// NewKV returns a storage over an already open database. Close leaves the
// database open.
func NewKV(db *kv.DB, compression compress.Type) *KV {
	return &KV{db: db, path: absPath(db.Path()), compression: compression}
}

// OpenKV opens the index database at path read-only.
func OpenKV(path string) (*KV, error) {
	db, err := kv.Open(kv.Options{Path: path, ReadOnly: true})
	if errors.Is(err, kv.ErrNoDatabase) {
		return nil, notFound(path, err)
	}
	if err != nil {
		return nil, err
	}
	return &KV{db: db, path: absPath(path), owned: true, compression: compress.LZ4}, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Load implements Storage.
func (s *KV) Load(_ context.Context, path string) ([]byte, error) {
	block, err := s.db.Get(Partition, []byte(path))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, path, s.Spec())
	}
	if err != nil {
		return nil, err
	}
	data, err := compress.Decode(block)
	if err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", path, err)
	}
	return data, nil
}

// Save implements Storage.
func (s *KV) Save(_ context.Context, path string, data []byte) (string, error) {
	if s.db.ReadOnly() {
		return "", ErrReadOnly
	}
	block, err := compress.Encode(data, s.compression)
	if err != nil {
		return "", err
	}
	if err := s.db.Update(func(tx *kv.Tx) error {
		return tx.Set(Partition, []byte(path), block)
	}); err != nil {
		return "", err
	}
	return path, nil
}

// Spec implements Storage.
func (s *KV) Spec() string { return SchemeBadger + "://" + s.path }

// Close closes the database if OpenKV opened it.
func (s *KV) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
