// Package blobstore abstracts the object stores that hold dataset signature
// files referenced by an index.
//
// BlobStore is the interface for reading and writing named blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, reads served from memory mappings
//   - MemoryStore: in-process map, for tests
//   - CachingStore: whole-blob read cache in front of another store
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible services
//
// Whole blobs are read with ReadAll:
//
//	data, err := blobstore.ReadAll(ctx, store, "genomes/GCF_000006945.sig.gz")
package blobstore
