// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible systems (Ceph, SeaweedFS,
// Garage) and needs no AWS dependencies, which makes it the usual choice for
// air-gapped reference collections.
//
// # Basic Usage
//
//	store, err := minio.New(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "refs",
//	    Prefix:    "gtdb/",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Storage specs of the form minio://<endpoint>/<bucket>/<prefix> resolve to
// this store.
package minio
