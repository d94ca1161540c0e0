package collection

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/revindex/internal/conv"
	"github.com/hupe1980/revindex/sketch"
	"github.com/hupe1980/revindex/storage"
)

// FromStorage builds a collection from the signature files at locations.
// Every sketch becomes one record.
func FromStorage(ctx context.Context, st storage.Storage, locations []string) (*Collection, error) {
	var records []Record
	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := st.Load(ctx, loc)
		if err != nil {
			return nil, err
		}
		sigs, err := sketch.Load(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("collection: %s: %w", loc, err)
		}
		for _, sig := range sigs {
			for _, mh := range sig.Sketches {
				records = append(records, NewRecord(sig, mh, loc))
			}
		}
	}
	if _, err := conv.IntToUint32(len(records)); err != nil {
		return nil, fmt.Errorf("collection: too many datasets: %w", err)
	}
	return New(NewManifest(records), st), nil
}

// FromPaths builds a collection from signature files on the local file system.
func FromPaths(ctx context.Context, paths []string) (*Collection, error) {
	return FromStorage(ctx, storage.NewFS(""), paths)
}

// FromZip builds a collection from the signature files in a zip archive.
func FromZip(ctx context.Context, path string) (*Collection, error) {
	z, err := storage.OpenZip(path)
	if err != nil {
		return nil, err
	}

	var locations []string
	for _, name := range z.Names() {
		if isSignatureFile(name) {
			locations = append(locations, name)
		}
	}

	c, err := FromStorage(ctx, z, locations)
	if err != nil {
		_ = z.Close()
		return nil, err
	}
	return c, nil
}

// FromSignatures stores sigs in a new in-memory storage registered as name.
func FromSignatures(ctx context.Context, name string, sigs []*sketch.Signature) (*Collection, error) {
	mem := storage.NewMem(name)
	locations := make([]string, 0, len(sigs))
	for i, sig := range sigs {
		data, err := sketch.Encode(sig)
		if err != nil {
			return nil, err
		}
		loc, err := mem.Save(ctx, fmt.Sprintf("signatures/%d.sig", i), data)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return FromStorage(ctx, mem, locations)
}

func isSignatureFile(name string) bool {
	return strings.HasSuffix(name, ".sig") || strings.HasSuffix(name, ".sig.gz")
}
