// Package mmap maps read-only files into memory. Zip archives holding
// dataset signatures are served from a mapping so random member access does
// not go through read syscalls.
package mmap

import (
	"errors"
	"io"
	"os"
)

var (
	// ErrClosed is returned when accessing a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the file size cannot be mapped.
	ErrInvalidSize = errors.New("mmap: invalid file size")
)

// File is a read-only memory-mapped file.
type File struct {
	data   []byte
	mapped bool
	closed bool
}

// Open maps the file at path into memory as read-only.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size < 0 || int64(int(size)) != size {
		return nil, ErrInvalidSize
	}
	if size == 0 {
		return &File{}, nil
	}

	data, mapped, err := mapFile(f, int(size))
	if err != nil {
		return nil, err
	}
	return &File{data: data, mapped: mapped}, nil
}

// Len returns the mapped size in bytes.
func (m *File) Len() int { return len(m.data) }

// Bytes returns the mapped region. It must not be used after Close.
func (m *File) Bytes() []byte { return m.data }

// ReadAt implements io.ReaderAt.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the file.
func (m *File) Close() error {
	if m == nil || m.closed {
		return nil
	}
	m.closed = true
	data := m.data
	m.data = nil
	if m.mapped && data != nil {
		return unmap(data)
	}
	return nil
}
