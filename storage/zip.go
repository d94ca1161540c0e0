package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/hupe1980/revindex/internal/mmap"
	"github.com/klauspost/compress/zip"
)

// Zip reads blobs from a memory-mapped zip archive.
type Zip struct {
	path string
	file *mmap.File

	mu      sync.RWMutex
	entries map[string]*zip.File
	reader  *zip.Reader
}

// OpenZip maps the archive at path.
func OpenZip(path string) (*Zip, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, notFound(path, err)
	}

	r, err := zip.NewReader(bytes.NewReader(f.Bytes()), int64(f.Len()))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("storage: read zip %s: %w", path, err)
	}

	entries := make(map[string]*zip.File, len(r.File))
	for _, zf := range r.File {
		entries[zf.Name] = zf
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Zip{path: abs, file: f, reader: r, entries: entries}, nil
}

// Names returns the entry names in archive order, skipping directories.
func (z *Zip) Names() []string {
	z.mu.RLock()
	defer z.mu.RUnlock()

	out := make([]string, 0, len(z.reader.File))
	for _, zf := range z.reader.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		out = append(out, zf.Name)
	}
	return out
}

// Load decompresses the entry at path.
func (z *Zip) Load(_ context.Context, path string) ([]byte, error) {
	z.mu.RLock()
	zf, ok := z.entries[path]
	z.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, path, z.path)
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// Save is not supported; archives are read-only.
func (z *Zip) Save(context.Context, string, []byte) (string, error) {
	return "", ErrReadOnly
}

// Spec implements Storage.
func (z *Zip) Spec() string { return SchemeZip + "://" + z.path }

// Close unmaps the archive.
func (z *Zip) Close() error { return z.file.Close() }

// WriteZip writes files as a deflate-compressed archive in names order.
func WriteZip(w io.Writer, names []string, files map[string][]byte) error {
	zw := zip.NewWriter(w)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := fw.Write(files[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}
