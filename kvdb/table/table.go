// Package table partitions one store into key-prefixed namespaces.
package table

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
)

// Table is a view of the underlying store restricted to keys starting with
// prefix. Keys passed in and returned by iterators are unprefixed.
type Table struct {
	prefix []byte
	db     kvdb.Store
}

// New table over db.
func New(db kvdb.Store, prefix []byte) *Table {
	return &Table{prefix: common.CopyBytes(prefix), db: db}
}

// NewTable nests a table, so prefixes concatenate.
func (t *Table) NewTable(prefix []byte) *Table {
	return New(t, prefix)
}

func (t *Table) key(k []byte) []byte {
	out := make([]byte, 0, len(t.prefix)+len(k))
	return append(append(out, t.prefix...), k...)
}

// Close is refused, the owner of the underlying store closes it.
func (t *Table) Close() error {
	return kvdb.ErrUnsupportedOp
}

func (t *Table) Drop() {}

func (t *Table) Has(key []byte) (bool, error) {
	return t.db.Has(t.key(key))
}

func (t *Table) Get(key []byte) ([]byte, error) {
	return t.db.Get(t.key(key))
}

func (t *Table) Put(key []byte, value []byte) error {
	return t.db.Put(t.key(key), value)
}

func (t *Table) Delete(key []byte) error {
	return t.db.Delete(t.key(key))
}

func (t *Table) NewBatch() kvdb.Batch {
	return &batch{Batch: t.db.NewBatch(), t: t}
}

func (t *Table) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	return &iterator{Iterator: t.db.NewIterator(t.key(prefix), start), skip: len(t.prefix)}
}

type iterator struct {
	kvdb.Iterator
	skip int
}

func (it *iterator) Key() []byte {
	k := it.Iterator.Key()
	if len(k) < it.skip {
		return k
	}
	return k[it.skip:]
}

type batch struct {
	kvdb.Batch
	t *Table
}

func (b *batch) Put(key, value []byte) error {
	return b.Batch.Put(b.t.key(key), value)
}

func (b *batch) Delete(key []byte) error {
	return b.Batch.Delete(b.t.key(key))
}
