package pebble

import (
	"os"
	"path/filepath"

	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
)

// Producer opens pebble stores as subdirectories of datadir.
type Producer struct {
	datadir string
	cache   func(name string) int
}

// NewProducer of pebble stores. cache may be nil.
func NewProducer(datadir string, cache func(name string) int) kvdb.DbProducer {
	return &Producer{datadir: datadir, cache: cache}
}

// Names lists the stores found in datadir.
func (p *Producer) Names() []string {
	entries, err := os.ReadDir(p.datadir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

// OpenDB opens the named store, creating it when absent.
func (p *Producer) OpenDB(name string) (kvdb.DropableStore, error) {
	path := filepath.Join(p.datadir, name)
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	cache := 0
	if p.cache != nil {
		cache = p.cache(name)
	}
	return New(path, cache, 0, nil, func() { _ = os.RemoveAll(path) })
}
