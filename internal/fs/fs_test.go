package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")

	require.NoError(t, WriteFile(Default, path, []byte("hello")))
	require.NoError(t, WriteFile(Default, path, []byte("replaced")))

	data, err := Default.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))
	assert.NoFileExists(t, path+".tmp")
}

func TestWriteFileFaults(t *testing.T) {
	tests := []struct {
		name  string
		fault Fault
	}{
		{"write", Fault{FailAfterBytes: 2}},
		{"sync", Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"rename", Fault{FailAfterBytes: -1, FailOnRename: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "blob")
			require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

			ffs := NewFaultyFS(nil)
			ffs.AddRule("blob", tt.fault)

			err := WriteFile(ffs, path, []byte("new content"))
			require.ErrorIs(t, err, ErrInjected)

			// The previous content survives and no temporary file is left.
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "old", string(data))
			assert.NoFileExists(t, path+".tmp")
		})
	}
}

func TestFaultyRead(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good")
	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(good, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("y"), 0o600))

	boom := errors.New("boom")
	ffs := NewFaultyFS(nil)
	ffs.AddRule("bad", Fault{FailOnRead: true, FailAfterBytes: -1, Err: boom})

	_, err := ffs.ReadFile(good)
	require.NoError(t, err)
	_, err = ffs.ReadFile(bad)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ffs.Reads())
}

func TestFaultyWrittenCounter(t *testing.T) {
	ffs := NewFaultyFS(nil)
	require.NoError(t, WriteFile(ffs, filepath.Join(t.TempDir(), "a"), []byte("12345")))
	assert.Equal(t, int64(5), ffs.Written())
}
