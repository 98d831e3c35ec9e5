// Package pebble stores synchronized data snapshots in a Pebble directory.
package pebble

import (
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
)

const minCache = 16 * opt.KiB

// Database is a kvdb.DropableStore on top of pebble. Single writes go
// unsynced, batches are synced since each one commits a whole round.
type Database struct {
	path string
	pdb  *pebble.DB

	mu      sync.Mutex
	onClose func() error
	onDrop  func()
}

// New opens (or creates) the database at path.
func New(path string, cache int, handles int, onClose func() error, onDrop func()) (*Database, error) {
	if cache < minCache {
		cache = minCache
	}
	c := pebble.NewCache(int64(cache * 2 / 3))
	defer c.Unref()

	pdb, err := pebble.Open(path, &pebble.Options{
		Cache:        c,
		MemTableSize: cache / 3,
		MaxOpenFiles: handles,
	})
	if err != nil {
		return nil, err
	}
	return &Database{path: path, pdb: pdb, onClose: onClose, onDrop: onDrop}, nil
}

// Path of the database directory.
func (db *Database) Path() string {
	return db.path
}

// Close flushes the memtable and releases the files. A second Close panics.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.pdb == nil {
		panic("pebble: already closed")
	}
	pdb := db.pdb
	db.pdb = nil
	if db.onClose != nil {
		if err := db.onClose(); err != nil {
			return err
		}
		db.onClose = nil
	}
	return pdb.Close()
}

// Drop removes the data. The database must be closed first.
func (db *Database) Drop() {
	if db.pdb != nil {
		panic("pebble: drop of an open store")
	}
	if db.onDrop != nil {
		db.onDrop()
	}
}

func (db *Database) Has(key []byte) (bool, error) {
	_, closer, err := db.pdb.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

// Get returns a copy of the value, or nil, nil for a missing key.
func (db *Database) Get(key []byte) ([]byte, error) {
	v, closer, err := db.pdb.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	return out, closer.Close()
}

func (db *Database) Put(key []byte, value []byte) error {
	return db.pdb.Set(key, value, pebble.NoSync)
}

func (db *Database) Delete(key []byte) error {
	return db.pdb.Delete(key, pebble.NoSync)
}

func (db *Database) NewBatch() kvdb.Batch {
	return &batch{pdb: db.pdb, b: db.pdb.NewBatch()}
}

func (db *Database) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	r := util.BytesPrefix(prefix)
	opts := &pebble.IterOptions{
		LowerBound: append(r.Start, start...),
		UpperBound: r.Limit,
	}
	return &iterator{Iterator: db.pdb.NewIter(opts)}
}

// iterator adapts pebble's positioning to the Next-first contract.
type iterator struct {
	*pebble.Iterator
	started  bool
	released bool
}

func (it *iterator) Next() bool {
	if !it.started {
		it.started = true
		return it.First()
	}
	return it.Iterator.Next()
}

func (it *iterator) Release() {
	if !it.released {
		_ = it.Close()
		it.released = true
	}
}

type batch struct {
	pdb  *pebble.DB
	b    *pebble.Batch
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.size += len(value)
	return b.b.Set(key, value, nil)
}

func (b *batch) Delete(key []byte) error {
	b.size++
	return b.b.Delete(key, nil)
}

func (b *batch) ValueSize() int { return b.size }

func (b *batch) Write() error { return b.pdb.Apply(b.b, pebble.Sync) }

func (b *batch) Reset() {
	b.b.Reset()
	b.size = 0
}
