package abci

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	pkgerrors "github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/inter/idx"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb/memorydb"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb/table"
)

var (
	// ErrKeyNotFound is returned by GetStrict for a key absent from the latest snapshot.
	ErrKeyNotFound = errors.New("key not found")

	headKey = []byte("h")
)

// Values is a set of JSON-typed entries: string, bool, nil, json.Number,
// []interface{} or map[string]interface{}.
type Values map[string]interface{}

// Keys returns the sorted keys.
func (vv Values) Keys() []string {
	keys := make([]string, 0, len(vv))
	for k := range vv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type head struct {
	Period   idx.Period   `json:"period"`
	Snapshot idx.Snapshot `json:"snapshot"`
}

// DB is the versioned, append-only store behind SynchronizedData.
// Every Update appends a snapshot to the current period; reads see the latest one.
type DB struct {
	crit func(error)

	mainDB kvdb.Store
	table  struct {
		Head      kvdb.Store `table:"h"`
		Snapshots kvdb.Store `table:"s"`
	}

	crossPeriodKeys []string

	head   head
	latest Values

	log log.Logger
}

// NewDB creates db over key-value store, restoring the latest snapshot if any.
func NewDB(mainDB kvdb.Store, crossPeriodKeys []string, crit func(error)) *DB {
	db := &DB{
		crit:            crit,
		mainDB:          mainDB,
		crossPeriodKeys: append([]string(nil), crossPeriodKeys...),
		latest:          Values{},
		log:             log.New("module", "abci-db"),
	}

	table.MigrateTables(&db.table, db.mainDB)

	buf, err := db.table.Head.Get(headKey)
	if err != nil {
		db.crit(err)
	}
	if buf != nil {
		if err := json.Unmarshal(buf, &db.head); err != nil {
			db.crit(pkgerrors.Wrap(err, "corrupted db head"))
		}
		db.latest = db.load(db.head.Period, db.head.Snapshot)
		db.log.Debug("Restored synchronized data", "period", db.head.Period, "snapshot", db.head.Snapshot)
	}

	return db
}

// NewMemDB creates db over memory map.
func NewMemDB(crossPeriodKeys ...string) *DB {
	crit := func(err error) {
		panic(err)
	}
	return NewDB(memorydb.New(), crossPeriodKeys, crit)
}

// Close leaves underlying database.
func (db *DB) Close() error {
	table.MigrateTables(&db.table, nil)
	return db.mainDB.Close()
}

// Period returns the current period.
func (db *DB) Period() idx.Period {
	return db.head.Period
}

// Snapshot returns the number of the latest snapshot in the current period.
func (db *DB) Snapshot() idx.Snapshot {
	return db.head.Snapshot
}

// Get returns the latest value of key or def if absent.
func (db *DB) Get(key string, def interface{}) interface{} {
	v, ok := db.latest[key]
	if !ok {
		return def
	}
	return v
}

// GetStrict returns the latest value of key or ErrKeyNotFound.
func (db *DB) GetStrict(key string) (interface{}, error) {
	v, ok := db.latest[key]
	if !ok {
		return nil, pkgerrors.Wrapf(ErrKeyNotFound, "%q in period %d", key, db.head.Period)
	}
	return v, nil
}

// Has reports whether key exists in the latest snapshot.
func (db *DB) Has(key string) bool {
	_, ok := db.latest[key]
	return ok
}

// Latest returns a copy of the latest snapshot.
func (db *DB) Latest() Values {
	return copyValues(db.latest)
}

// At returns the snapshot n of the period p, or nil if it was never written.
func (db *DB) At(p idx.Period, n idx.Snapshot) Values {
	return db.load(p, n)
}

// Update appends a snapshot made of the latest one overridden by kv.
func (db *DB) Update(kv Values) error {
	next := copyValues(db.latest)
	for k, v := range kv {
		norm, err := normalize(v)
		if err != nil {
			return pkgerrors.Wrapf(err, "key %q", k)
		}
		next[k] = norm
	}
	db.commit(db.head.Period, db.head.Snapshot+1, next)
	return nil
}

// CreatePeriod starts a new period keeping only the cross-period keys.
func (db *DB) CreatePeriod() {
	next := Values{}
	for _, k := range db.crossPeriodKeys {
		if v, ok := db.latest[k]; ok {
			next[k] = v
		}
	}
	db.commit(db.head.Period+1, 0, next)
}

func (db *DB) commit(p idx.Period, n idx.Snapshot, vv Values) {
	buf, err := json.Marshal(vv)
	if err != nil {
		db.crit(err)
	}

	batch := db.table.Snapshots.NewBatch()
	if err := batch.Put(snapshotKey(p, n), buf); err != nil {
		db.crit(err)
	}
	if err := batch.Write(); err != nil {
		db.crit(err)
	}

	h := head{Period: p, Snapshot: n}
	hbuf, err := json.Marshal(h)
	if err != nil {
		db.crit(err)
	}
	if err := db.table.Head.Put(headKey, hbuf); err != nil {
		db.crit(err)
	}

	db.head = h
	db.latest = vv
}

func (db *DB) load(p idx.Period, n idx.Snapshot) Values {
	buf, err := db.table.Snapshots.Get(snapshotKey(p, n))
	if err != nil {
		db.crit(err)
	}
	if buf == nil {
		return nil
	}
	vv, err := decodeValues(buf)
	if err != nil {
		db.crit(pkgerrors.Wrapf(err, "corrupted snapshot %d/%d", p, n))
	}
	return vv
}

func snapshotKey(p idx.Period, n idx.Snapshot) []byte {
	return append(p.Bytes(), n.Bytes()...)
}

// normalize turns v into its JSON-typed form, so that in-memory values match persisted ones.
func normalize(v interface{}) (interface{}, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var res interface{}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		return nil, err
	}
	return res, nil
}

func decodeValues(buf []byte) (Values, error) {
	vv := Values{}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	if err := dec.Decode(&vv); err != nil {
		return nil, err
	}
	return vv, nil
}

// copyValues is shallow: stored values are never mutated in place.
func copyValues(vv Values) Values {
	res := make(Values, len(vv))
	for k, v := range vv {
		res[k] = v
	}
	return res
}
