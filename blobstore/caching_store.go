package blobstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// CachingStore wraps a BlobStore and keeps recently read blobs in memory.
// Remote stores pay a round trip per signature load; gather loads the same
// references again for every query.
type CachingStore struct {
	inner BlobStore
	cache *ristretto.Cache[string, []byte]
}

// NewCachingStore creates a CachingStore holding up to maxBytes of blob data.
func NewCachingStore(inner BlobStore, maxBytes int64) (*CachingStore, error) {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 10_000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: create cache: %w", err)
	}
	return &CachingStore{inner: inner, cache: c}, nil
}

// Open serves the blob from the cache, reading it fully on a miss.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.cache.Get(name); ok {
		return &memoryBlob{data: data}, nil
	}

	data, err := ReadAll(ctx, s.inner, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(name, data, int64(len(data))+1)
	return &memoryBlob{data: data}, nil
}

// Put invalidates the cached copy and writes through.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Del(name)
	return s.inner.Put(ctx, name, data)
}

// Delete invalidates the cached copy and deletes from the inner store.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Del(name)
	return s.inner.Delete(ctx, name)
}

// List is not cached.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Wait blocks until pending cache writes are visible.
func (s *CachingStore) Wait() { s.cache.Wait() }

// Close releases the cache.
func (s *CachingStore) Close() error {
	s.cache.Close()
	return nil
}
