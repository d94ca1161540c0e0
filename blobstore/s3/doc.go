// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("signatures/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	st := storage.NewBlob(store, "s3://my-bucket/signatures")
//
// # Features
//
//   - Range reads for partial fetches
//   - CRC32C checksums on single-part uploads
//   - Multipart uploads for large signature archives
//   - Automatic pagination for listing
package s3
