package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
	"github.com/Fantom-foundation/mech-interact-abci/kvdb/memorydb"
)

type roundTables struct {
	NoTable   interface{}
	Manual    kvdb.Store `table:"-"`
	Nil       kvdb.Store `table:"-"`
	Periods   kvdb.Store `table:"p"`
	Payloads  kvdb.Store `table:"v"`
	Responses kvdb.Store `table:"r"`
}

func TestMigrateTables(t *testing.T) {
	require := require.New(t)

	tt := &roundTables{}
	MigrateTables(tt, memorydb.New())
	require.NotNil(tt.Periods)
	require.NotNil(tt.Payloads)
	require.NotNil(tt.Responses)
	require.Nil(tt.Manual)

	require.NoError(tt.Periods.Put([]byte("k"), []byte("period")))
	got, err := tt.Payloads.Get([]byte("k"))
	require.NoError(err)
	require.Nil(got)

	MigrateTables(tt, nil)
	require.Nil(tt.Periods)

	type clash struct {
		A kvdb.Store `table:"x"`
		B kvdb.Store `table:"x"`
	}
	require.Panics(func() {
		MigrateTables(&clash{}, memorydb.New())
	})

	type nested struct {
		A kvdb.Store `table:"s"`
		B kvdb.Store `table:"sn"`
	}
	require.Panics(func() {
		MigrateTables(&nested{}, memorydb.New())
	})
}
