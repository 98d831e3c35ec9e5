// Package memorydb implements the key-value database layer based on an ordered in-memory tree.
package memorydb

import (
	"bytes"
	"errors"
	"sync"

	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
)

var (
	errClosed = errors.New("database closed")
)

// Database is an ephemeral key-value store. Apart from basic data storage
// functionality it also supports batch writes and iterating over the keyspace in
// binary-alphabetical order.
type Database struct {
	tree   *rbt.Tree // string(key) -> []byte
	onDrop func()

	lock sync.RWMutex
}

// New returns a wrapped tree with all the required database interface methods
// implemented.
func New() *Database {
	return NewWithDrop(nil)
}

// NewWithDrop is the same as New, but defines onDrop callback.
func NewWithDrop(drop func()) *Database {
	return &Database{
		tree:   rbt.NewWithStringComparator(),
		onDrop: drop,
	}
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.tree == nil {
		return false, errClosed
	}
	_, ok := db.tree.Get(string(key))
	return ok, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.tree == nil {
		return nil, errClosed
	}
	if entry, ok := db.tree.Get(string(key)); ok {
		return common.CopyBytes(entry.([]byte)), nil
	}
	return nil, nil
}

// Put inserts the given value into the key-value store.
func (db *Database) Put(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.tree == nil {
		return errClosed
	}
	if key == nil || value == nil {
		return errors.New("memorydb: key or value is nil")
	}
	db.tree.Put(string(key), common.CopyBytes(value))
	return nil
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.tree == nil {
		return errClosed
	}
	db.tree.Remove(string(key))
	return nil
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (db *Database) NewBatch() kvdb.Batch {
	return &batch{db: db}
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of database content with a particular key prefix, starting at a particular
// initial key (or after, if it does not exist).
// The iterator works over a point-in-time copy of the matching pairs.
func (db *Database) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	it := &iterator{index: -1}
	if db.tree == nil {
		it.err = errClosed
		return it
	}

	from := string(append(common.CopyBytes(prefix), start...))
	for iter := db.tree.Iterator(); iter.Next(); {
		key := iter.Key().(string)
		if key < from {
			continue
		}
		if !bytes.HasPrefix([]byte(key), prefix) {
			break
		}
		it.keys = append(it.keys, []byte(key))
		it.values = append(it.values, common.CopyBytes(iter.Value().([]byte)))
	}
	return it
}

// Close deallocates the internal map and ensures any consecutive data access op
// fails with an error.
func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.tree = nil
	return nil
}

// Drop whole database.
func (db *Database) Drop() {
	if db.onDrop != nil {
		db.onDrop()
	}
}

// Len returns the number of entries currently present in the memory database.
func (db *Database) Len() int {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.tree == nil {
		return 0
	}
	return db.tree.Size()
}
