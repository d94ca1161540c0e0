// Package storage resolves the locations recorded in a collection manifest to
// signature bytes.
//
// A Storage is identified by a spec string of the form <scheme>://<location>:
//
//	fs://<dir>                          files below a directory
//	zip://<file>                        entries of a zip archive
//	mem://<name>                        a process-local in-memory store
//	badger://<index dir>                blobs embedded in a reverse index
//	s3://<bucket>/<prefix>              objects in an S3 bucket
//	minio://<endpoint>/<bucket>/<prefix> objects in a MinIO bucket
//
// FromSpec turns a spec back into a Storage. Specs that point at missing
// local targets fail with ErrNotFound so callers can tell moved data apart
// from other failures.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a spec target or a location does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrReadOnly is returned by Save on storages that cannot be written.
	ErrReadOnly = errors.New("storage: read-only")

	// ErrUnknownScheme is returned by FromSpec for unsupported schemes.
	ErrUnknownScheme = errors.New("storage: unknown scheme")
)

// Storage loads and saves dataset blobs by location.
type Storage interface {
	// Load returns the bytes stored at path.
	Load(ctx context.Context, path string) ([]byte, error)
	// Save stores data at path and returns the location it was stored under.
	Save(ctx context.Context, path string, data []byte) (string, error)
	// Spec returns the spec string FromSpec accepts to reopen this storage.
	Spec() string
	// Close releases resources held by the storage.
	Close() error
}

// Scheme names.
const (
	SchemeFS     = "fs"
	SchemeZip    = "zip"
	SchemeMem    = "mem"
	SchemeBadger = "badger"
	SchemeS3     = "s3"
	SchemeMinio  = "minio"
)

// ParseSpec splits a spec into scheme and location.
func ParseSpec(spec string) (scheme, location string, err error) {
	scheme, location, ok := strings.Cut(spec, "://")
	if !ok || scheme == "" {
		return "", "", fmt.Errorf("storage: malformed spec %q", spec)
	}
	return scheme, location, nil
}

// FromSpec opens the storage described by spec.
func FromSpec(ctx context.Context, spec string) (Storage, error) {
	scheme, location, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case SchemeFS:
		return OpenFS(location)
	case SchemeZip:
		return OpenZip(location)
	case SchemeMem:
		return LookupMem(location)
	case SchemeBadger:
		return OpenKV(location)
	case SchemeS3:
		return openS3(ctx, location)
	case SchemeMinio:
		return openMinio(location)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

func notFound(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNotFound, what, err)
}
