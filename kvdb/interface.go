// Package kvdb defines the key-value storage abstraction the synchronized
// data history is persisted through.
package kvdb

import (
	"io"

	"github.com/ethereum/go-ethereum/ethdb"
)

type (
	// Reader is Has + Get.
	Reader = ethdb.KeyValueReader
	// Writer is Put + Delete.
	Writer = ethdb.KeyValueWriter
	// Iterator walks key/value pairs in ascending key order.
	Iterator = ethdb.Iterator
)

// Batch buffers writes until Write is called. Not safe for concurrent use.
type Batch interface {
	Writer
	ValueSize() int
	Write() error
	Reset()
}

// Store is the set of operations every backend provides.
type Store interface {
	Reader
	Writer
	io.Closer

	NewBatch() Batch
	// NewIterator walks keys having prefix, starting at prefix+start.
	NewIterator(prefix []byte, start []byte) Iterator
}

// Droper is able to delete the DB.
type Droper interface {
	Drop()
}

// DropableStore is a Store that may be removed after close.
type DropableStore interface {
	Store
	Droper
}

// DbProducer opens named stores under one data directory.
type DbProducer interface {
	Names() []string
	OpenDB(name string) (DropableStore, error)
}
