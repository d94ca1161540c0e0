package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	memMu       sync.Mutex
	memRegistry = map[string]*Mem{}
)

// Mem keeps blobs in memory. Every Mem is registered under its name so that
// mem:// specs resolve within the same process.
type Mem struct {
	name string

	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMem creates and registers an in-memory storage, replacing any previous
// storage of the same name.
func NewMem(name string) *Mem {
	m := &Mem{name: name, blobs: make(map[string][]byte)}
	memMu.Lock()
	memRegistry[name] = m
	memMu.Unlock()
	return m
}

// LookupMem returns the registered storage called name.
func LookupMem(name string) (*Mem, error) {
	memMu.Lock()
	defer memMu.Unlock()
	m, ok := memRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: mem://%s", ErrNotFound, name)
	}
	return m, nil
}

// Load implements Storage.
func (m *Mem) Load(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return data, nil
}

// Save implements Storage.
func (m *Mem) Save(_ context.Context, path string, data []byte) (string, error) {
	m.mu.Lock()
	m.blobs[path] = slices.Clone(data)
	m.mu.Unlock()
	return path, nil
}

// Paths returns the stored locations in ascending order.
func (m *Mem) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.blobs))
}

// Spec implements Storage.
func (m *Mem) Spec() string { return SchemeMem + "://" + m.name }

// Close implements Storage. The storage stays registered.
func (m *Mem) Close() error { return nil }

// Unregister removes the storage from the process registry.
func (m *Mem) Unregister() {
	memMu.Lock()
	if memRegistry[m.name] == m {
		delete(memRegistry, m.name)
	}
	memMu.Unlock()
}
