package minio

import (
	"context"
	"os"
	"testing"

	"github.com/hupe1980/revindex/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ blobstore.BlobStore = (*Store)(nil)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := "test-revindex"

	store, err := New(Config{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    bucket,
		Prefix:    "test-prefix/",
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err = store.client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := store.client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	data := []byte(`[{"class":"sourmash_signature"}]`)
	require.NoError(t, store.Put(ctx, "sigs/a.sig", data))

	blob, err := store.Open(ctx, "sigs/a.sig")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	got, err := blobstore.ReadAll(ctx, store, "sigs/a.sig")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 2)
	require.NoError(t, err)
	assert.Equal(t, data[2:2+n], buf[:n])

	names, err := store.List(ctx, "sigs")
	require.NoError(t, err)
	assert.Contains(t, names, "sigs/a.sig")

	require.NoError(t, store.Delete(ctx, "sigs/a.sig"))
	_, err = store.Open(ctx, "sigs/a.sig")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "sigs/a.sig"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/gzip", contentType("refs/a.sig.gz"))
	assert.Equal(t, "application/json", contentType("refs/a.sig"))
	assert.Equal(t, "application/octet-stream", contentType("refs/manifest.bin"))
}
