// Package kv provides the persistent ordered key-value store behind a
// reverse index.
//
// It wraps BadgerDB and adds named partitions (column families): every
// partition owns a key prefix, and the set of partitions that exist is
// recorded in a registry so it can be introspected after reopening.
//
//	db, _ := kv.Open(kv.Options{Path: dir})
//	_ = db.CreatePartition("hashes")
//	_ = db.Update(func(tx *kv.Tx) error { return tx.Set("hashes", k, v) })
//	_ = db.Iterate("hashes", func(k, v []byte) error { ...; return nil })
package kv

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("kv: key not found")

	// ErrUnknownPartition is returned when a partition has not been created.
	ErrUnknownPartition = errors.New("kv: unknown partition")

	// ErrNoDatabase is returned by Open when MustExist is set and the
	// directory holds no database.
	ErrNoDatabase = errors.New("kv: no database at path")
)

// registryPrefix cannot collide with partition prefixes: partition names
// are non-empty and never start with a NUL byte.
var registryPrefix = []byte("\x00partitions\x00")

// Options configures Open.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory. Useful for tests.
	InMemory bool

	// MustExist makes Open fail with ErrNoDatabase instead of creating a
	// fresh database.
	MustExist bool

	// SyncWrites makes every commit durable before returning.
	SyncWrites bool

	// ReadOnly opens an existing database without write access. Several
	// read-only handles may share a directory; a writer may not.
	ReadOnly bool

	// Logger receives badger's internal log output. Nil disables it.
	Logger *slog.Logger
}

// DB is a partitioned key-value store. It is safe for concurrent use.
type DB struct {
	db       *badger.DB
	path     string
	inMemory bool
	readOnly bool
}

// Exists reports whether path holds a database.
func Exists(path string) bool {
	fi, err := os.Stat(filepath.Join(path, badger.ManifestFilename))
	return err == nil && !fi.IsDir()
}

// Open opens or creates a database.
func Open(opts Options) (*DB, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("kv: path is required for persistent database")
		}
		if (opts.MustExist || opts.ReadOnly) && !Exists(opts.Path) {
			return nil, fmt.Errorf("%w: %s", ErrNoDatabase, opts.Path)
		}
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("kv: create database directory %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path).WithReadOnly(opts.ReadOnly)
	}

	bopts = bopts.
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1)

	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("kv: open badger database: %w", err)
	}

	return &DB{db: db, path: opts.Path, inMemory: opts.InMemory, readOnly: opts.ReadOnly}, nil
}

// ReadOnly reports whether the database was opened read-only.
func (d *DB) ReadOnly() bool { return d.readOnly }

// Path returns the database directory, or "" for in-memory databases.
func (d *DB) Path() string { return d.path }

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// CreatePartition registers a partition. Creating an existing partition is a no-op.
func (d *DB) CreatePartition(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(registryKey(name), nil)
	})
}

// DropPartition removes a partition and every key in it.
func (d *DB) DropPartition(name string) error {
	if err := d.db.DropPrefix(prefix(name)); err != nil {
		return fmt.Errorf("kv: drop partition %s: %w", name, err)
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(registryKey(name))
	})
}

// Partitions returns the registered partition names in ascending order.
func (d *DB) Partitions() ([]string, error) {
	var names []string
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = registryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, string(it.Item().Key()[len(registryPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// HasPartition reports whether name is registered.
func (d *DB) HasPartition(name string) (bool, error) {
	names, err := d.Partitions()
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// Get returns a copy of the value stored under key.
func (d *DB) Get(partition string, key []byte) ([]byte, error) {
	var out []byte
	err := d.View(func(tx *Tx) error {
		v, err := tx.Get(partition, key)
		out = v
		return err
	})
	return out, err
}

// View runs fn in a read-only transaction.
func (d *DB) View(fn func(tx *Tx) error) error {
	return d.db.View(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// Update runs fn in a read-write transaction. All writes of fn are committed
// atomically, or none are. Transactions are bounded in size; use a Batch for
// bulk loads.
func (d *DB) Update(fn func(tx *Tx) error) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn, writable: true})
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("kv: transaction too large, use a batch: %w", err)
	}
	return err
}

// Iterate calls fn for every key of partition in key order. key and value
// are only valid during the call.
func (d *DB) Iterate(partition string, fn func(key, value []byte) error) error {
	p := prefix(partition)
	return d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = p
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()[len(p):]
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of keys in partition.
func (d *DB) Count(partition string) (int, error) {
	p := prefix(partition)
	n := 0
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = p
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Sync makes every previous write durable.
func (d *DB) Sync() error {
	if d.inMemory || d.readOnly {
		return nil
	}
	return d.db.Sync()
}

// Compact flattens the LSM tree and reclaims value log space.
func (d *DB) Compact() error {
	if err := d.db.Flatten(runtime.GOMAXPROCS(0)); err != nil {
		return fmt.Errorf("kv: flatten: %w", err)
	}
	if d.inMemory {
		return nil
	}
	for {
		err := d.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("kv: value log gc: %w", err)
		}
	}
}

// Tx is a transaction scoped to partitions.
type Tx struct {
	txn      *badger.Txn
	writable bool
}

// Get returns a copy of the value stored under key.
func (t *Tx) Get(partition string, key []byte) ([]byte, error) {
	item, err := t.txn.Get(partitionKey(partition, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores value under key.
func (t *Tx) Set(partition string, key, value []byte) error {
	if !t.writable {
		return badger.ErrReadOnlyTxn
	}
	return t.txn.Set(partitionKey(partition, key), value)
}

// Delete removes key.
func (t *Tx) Delete(partition string, key []byte) error {
	if !t.writable {
		return badger.ErrReadOnlyTxn
	}
	return t.txn.Delete(partitionKey(partition, key))
}

// Batch buffers writes for bulk loading. A batch is flushed in several
// internal transactions, so a failed batch may be partially applied; callers
// that need all-or-nothing semantics must guard the batch with a marker
// written through Update.
type Batch struct {
	wb *badger.WriteBatch
	n  int
}

// NewBatch starts a bulk write.
func (d *DB) NewBatch() *Batch {
	return &Batch{wb: d.db.NewWriteBatch()}
}

// Set queues a write.
func (b *Batch) Set(partition string, key, value []byte) error {
	b.n++
	return b.wb.Set(partitionKey(partition, key), value)
}

// Delete queues a delete.
func (b *Batch) Delete(partition string, key []byte) error {
	b.n++
	return b.wb.Delete(partitionKey(partition, key))
}

// Len returns the number of queued operations.
func (b *Batch) Len() int { return b.n }

// Commit flushes all queued writes.
func (b *Batch) Commit() error {
	return b.wb.Flush()
}

// Cancel discards the batch.
func (b *Batch) Cancel() {
	b.wb.Cancel()
}

func validName(name string) error {
	if name == "" || strings.ContainsRune(name, 0) {
		return fmt.Errorf("kv: invalid partition name %q", name)
	}
	return nil
}

func prefix(partition string) []byte {
	p := make([]byte, 0, len(partition)+1)
	p = append(p, partition...)
	return append(p, 0)
}

func partitionKey(partition string, key []byte) []byte {
	k := make([]byte, 0, len(partition)+1+len(key))
	k = append(k, partition...)
	k = append(k, 0)
	return append(k, key...)
}

func registryKey(name string) []byte {
	k := make([]byte, 0, len(registryPrefix)+len(name))
	k = append(k, registryPrefix...)
	return append(k, name...)
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
