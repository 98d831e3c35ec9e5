package table

import (
	"bytes"
	"io/ioutil"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb/leveldb"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb/memorydb"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb/pebble"
)

func tempDir(t *testing.T, name string) string {
	dir, err := ioutil.TempDir("", "table-test-"+name)
	require.NoError(t, err)
	return dir
}

func backends(t *testing.T) map[string]kvdb.DropableStore {
	ldb, err := leveldb.NewProducer(tempDir(t, "leveldb"), nil).OpenDB("db")
	require.NoError(t, err)
	pdb, err := pebble.NewProducer(tempDir(t, "pebble"), nil).OpenDB("db")
	require.NoError(t, err)

	return map[string]kvdb.DropableStore{
		"memory":  memorydb.New(),
		"leveldb": ldb,
		"pebble":  pdb,
	}
}

func TestTable(t *testing.T) {
	prefix0 := map[string][]byte{
		"00": {0},
		"01": {0, 1},
		"02": {0, 1, 2},
		"03": {0, 1, 2, 3},
	}
	prefix1 := map[string][]byte{
		"10": {0, 1, 2, 3, 4},
	}
	testData := join(prefix0, prefix1)

	for name, db := range backends(t) {
		db := db
		t.Run(name, func(t *testing.T) {
			defer db.Drop()
			defer db.Close()
			assertar := assert.New(t)

			tables := map[string]kvdb.Store{
				"/t1":      New(db, []byte("t1")),
				"/x/t1/t2": New(db, []byte("x")).NewTable([]byte("t1t2")),
				"/t2":      New(db, []byte("t2")),
			}

			// write
			for name, t := range tables {
				for k, v := range testData {
					if !assertar.NoError(t.Put([]byte(k), v), name) {
						return
					}
				}
			}

			// read
			for name, t := range tables {
				for pref, count := range map[string]int{
					"0": len(prefix0),
					"1": len(prefix1),
					"":  len(prefix0) + len(prefix1),
				} {
					got := 0
					var prevKey []byte

					it := t.NewIterator([]byte(pref), nil)
					for it.Next() {
						if prevKey != nil {
							assertar.Equal(1, bytes.Compare(it.Key(), prevKey))
						}
						prevKey = common.CopyBytes(it.Key())
						got++
						assertar.Equal(
							testData[string(it.Key())],
							it.Value(),
							name+": "+string(it.Key()),
						)
					}
					assertar.NoError(it.Error())
					it.Release()

					assertar.Equal(count, got, name+": prefix "+pref)
				}
			}
		})
	}
}

func TestTableBatch(t *testing.T) {
	for name, db := range backends(t) {
		db := db
		t.Run(name, func(t *testing.T) {
			defer db.Drop()
			defer db.Close()
			require := require.New(t)

			tbl := New(db, []byte("b"))
			batch := tbl.NewBatch()
			require.NoError(batch.Put([]byte("k1"), []byte("v1")))
			require.NoError(batch.Put([]byte("k2"), []byte("v2")))
			require.NoError(batch.Delete([]byte("k1")))

			got, err := tbl.Get([]byte("k2"))
			require.NoError(err)
			require.Nil(got)

			require.NoError(batch.Write())

			got, err = tbl.Get([]byte("k2"))
			require.NoError(err)
			require.Equal([]byte("v2"), got)

			has, err := tbl.Has([]byte("k1"))
			require.NoError(err)
			require.False(has)

			// the raw key carries the table prefix
			got, err = db.Get([]byte("bk2"))
			require.NoError(err)
			require.Equal([]byte("v2"), got)
		})
	}
}

func join(aa ...map[string][]byte) map[string][]byte {
	res := make(map[string][]byte)
	for _, a := range aa {
		for k, v := range a {
			res[k] = v
		}
	}
	return res
}
