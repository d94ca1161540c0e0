package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/revindex/blobstore"
	"github.com/hupe1980/revindex/blobstore/minio"
	"github.com/hupe1980/revindex/blobstore/s3"
)

// DefaultCacheBytes bounds the read cache in front of remote object stores.
const DefaultCacheBytes = 64 << 20

// Blob adapts a blobstore.BlobStore to Storage.
type Blob struct {
	store blobstore.BlobStore
	spec  string
}

// NewBlob wraps store. spec is reported by Spec unchanged.
func NewBlob(store blobstore.BlobStore, spec string) *Blob {
	return &Blob{store: store, spec: spec}
}

// Load implements Storage.
func (b *Blob) Load(ctx context.Context, path string) ([]byte, error) {
	data, err := blobstore.ReadAll(ctx, b.store, path)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, notFound(path, err)
	}
	return data, err
}

// Save implements Storage.
func (b *Blob) Save(ctx context.Context, path string, data []byte) (string, error) {
	if err := b.store.Put(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Spec implements Storage.
func (b *Blob) Spec() string { return b.spec }

// Close implements Storage.
func (b *Blob) Close() error {
	if c, ok := b.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func cached(store blobstore.BlobStore, spec string) (*Blob, error) {
	cs, err := blobstore.NewCachingStore(store, DefaultCacheBytes)
	if err != nil {
		return nil, err
	}
	return NewBlob(cs, spec), nil
}

// openS3 resolves s3://<bucket>/<prefix>. Region and endpoint come from the
// standard AWS environment.
func openS3(ctx context.Context, location string) (*Blob, error) {
	bucket, prefix, _ := strings.Cut(location, "/")
	if bucket == "" {
		return nil, fmt.Errorf("storage: s3 spec without bucket: %q", location)
	}
	store, err := s3.New(ctx, bucket, s3.WithPrefix(prefix))
	if err != nil {
		return nil, err
	}
	return cached(store, SchemeS3+"://"+location)
}

// openMinio resolves minio://<endpoint>/<bucket>/<prefix>. Credentials come
// from MINIO_ACCESS_KEY and MINIO_SECRET_KEY; MINIO_SECURE=true enables TLS.
func openMinio(location string) (*Blob, error) {
	parts := strings.SplitN(location, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("storage: minio spec needs endpoint and bucket: %q", location)
	}
	cfg := minio.Config{
		Endpoint: parts[0],
		Bucket:   parts[1],
		Secure:   os.Getenv("MINIO_SECURE") == "true",
	}
	if len(parts) == 3 {
		cfg.Prefix = parts[2]
	}
	store, err := minio.New(cfg)
	if err != nil {
		return nil, err
	}
	return cached(store, SchemeMinio+"://"+location)
}
