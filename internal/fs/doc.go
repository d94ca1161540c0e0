// Package fs abstracts the file operations behind file-backed dataset
// storage so tests can inject failures.
//
// Production code uses Default. Tests wrap it in a FaultyFS:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("datasets/", fs.Fault{FailOnSync: true, FailAfterBytes: -1})
//
// WriteFile replaces files atomically through a temporary file and a rename.
//
// Operations take no context: local file calls are short and cannot be
// interrupted at the syscall level. Remote storage goes through blobstore.
package fs
