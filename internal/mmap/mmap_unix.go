//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int) ([]byte, bool, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, false, err
	}
	// Archive members are looked up by offset from the central directory.
	_ = unix.Madvise(data, unix.MADV_RANDOM)
	return data, true, nil
}

func unmap(data []byte) error {
	return unix.Munmap(data)
}
