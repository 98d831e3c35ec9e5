//go:build !js
// +build !js

// Package leveldb stores synchronized data snapshots in a LevelDB directory.
package leveldb

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
)

const (
	minCache   = 16 * opt.KiB
	minHandles = 16
)

// Database is a kvdb.DropableStore on top of goleveldb.
type Database struct {
	path string
	ldb  *leveldb.DB

	mu      sync.Mutex
	onClose func() error
	onDrop  func()
}

// New opens (or creates) the database at path. A corrupted directory is
// recovered in place.
func New(path string, cache int, handles int, onClose func() error, onDrop func()) (*Database, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	logger := log.New("db", path)

	ldb, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2,
		WriteBuffer:            cache / 4,
		Filter:                 filter.NewBloomFilter(10),
	})
	if _, ok := err.(*errors.ErrCorrupted); ok {
		logger.Warn("Recovering corrupted store", "err", err)
		ldb, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("Opened store", "cache", cache, "handles", handles)

	return &Database{path: path, ldb: ldb, onClose: onClose, onDrop: onDrop}, nil
}

// Path of the database directory.
func (db *Database) Path() string {
	return db.path
}

// Close releases the files. A second Close panics.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.ldb == nil {
		panic("leveldb: already closed")
	}
	ldb := db.ldb
	db.ldb = nil
	if db.onClose != nil {
		if err := db.onClose(); err != nil {
			return err
		}
		db.onClose = nil
	}
	return ldb.Close()
}

// Drop removes the data. The database must be closed first.
func (db *Database) Drop() {
	if db.ldb != nil {
		panic("leveldb: drop of an open store")
	}
	if db.onDrop != nil {
		db.onDrop()
	}
}

func (db *Database) Has(key []byte) (bool, error) {
	ok, err := db.ldb.Has(key, nil)
	if err == leveldb.ErrNotFound {
		return false, nil
	}
	return ok, err
}

// Get returns nil, nil for a missing key.
func (db *Database) Get(key []byte) ([]byte, error) {
	v, err := db.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return v, err
}

func (db *Database) Put(key []byte, value []byte) error {
	return db.ldb.Put(key, value, nil)
}

func (db *Database) Delete(key []byte) error {
	return db.ldb.Delete(key, nil)
}

func (db *Database) NewBatch() kvdb.Batch {
	return &batch{ldb: db.ldb, b: new(leveldb.Batch)}
}

func (db *Database) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	r := util.BytesPrefix(prefix)
	r.Start = append(r.Start, start...)
	return db.ldb.NewIterator(r, nil)
}

type batch struct {
	ldb  *leveldb.DB
	b    *leveldb.Batch
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	b.size += len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	b.size++
	return nil
}

func (b *batch) ValueSize() int { return b.size }

func (b *batch) Write() error { return b.ldb.Write(b.b, nil) }

func (b *batch) Reset() {
	b.b.Reset()
	b.size = 0
}
