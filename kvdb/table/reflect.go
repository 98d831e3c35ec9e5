package table

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
)

// MigrateTables points every `table:"<prefix>"` field of the struct s refers
// to at a Table over db. A nil db resets the fields. Tag "-" is skipped.
// Panics when one prefix shadows another.
func MigrateTables(s interface{}, db kvdb.Store) {
	v := reflect.ValueOf(s).Elem()
	var prefixes [][]byte

	for i := 0; i < v.NumField(); i++ {
		prefix := v.Type().Field(i).Tag.Get("table")
		if prefix == "" || prefix == "-" {
			continue
		}
		field := v.Field(i)
		if db == nil {
			field.Set(reflect.Zero(field.Type()))
			continue
		}
		prefixes = append(prefixes, []byte(prefix))
		field.Set(reflect.ValueOf(New(db, []byte(prefix))))
	}
	if err := checkPrefixes(prefixes); err != nil {
		panic(err)
	}
}

// checkPrefixes rejects any pair where one prefix starts the other, since
// their keyspaces would overlap.
func checkPrefixes(prefixes [][]byte) error {
	for i := range prefixes {
		for j := i + 1; j < len(prefixes); j++ {
			a, b := prefixes[i], prefixes[j]
			if bytes.HasPrefix(a, b) || bytes.HasPrefix(b, a) {
				return fmt.Errorf("table prefixes %q and %q overlap", a, b)
			}
		}
	}
	return nil
}
