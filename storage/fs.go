package storage

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"

	"github.com/hupe1980/revindex/internal/fs"
)

// FS stores blobs as files below a root directory. An empty root resolves
// locations against the working directory, which is what collections built
// from plain file paths use.
type FS struct {
	root string
	fsys fs.FileSystem
}

// NewFS returns a storage rooted at dir without checking that it exists.
func NewFS(dir string) *FS {
	return &FS{root: dir, fsys: fs.Default}
}

// OpenFS returns a storage rooted at dir, which must exist.
func OpenFS(dir string) (*FS, error) {
	if dir != "" {
		fi, err := fs.Default.Stat(dir)
		if err != nil {
			return nil, notFound(dir, err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, dir)
		}
	}
	return NewFS(dir), nil
}

func (s *FS) path(p string) string {
	if s.root == "" || filepath.IsAbs(p) {
		return filepath.FromSlash(p)
	}
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// Load reads the file at path.
func (s *FS) Load(_ context.Context, path string) ([]byte, error) {
	data, err := s.fsys.ReadFile(s.path(path))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, notFound(path, err)
	}
	return data, err
}

// Save replaces the file at path atomically, creating parent directories.
func (s *FS) Save(_ context.Context, path string, data []byte) (string, error) {
	full := s.path(path)
	if err := s.fsys.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", err
	}
	if err := fs.WriteFile(s.fsys, full, data); err != nil {
		return "", fmt.Errorf("storage: save %s: %w", path, err)
	}
	return path, nil
}

// Spec implements Storage.
func (s *FS) Spec() string { return SchemeFS + "://" + s.root }

// Close implements Storage.
func (s *FS) Close() error { return nil }
