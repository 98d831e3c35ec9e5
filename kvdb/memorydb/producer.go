package memorydb

import (
	"sort"
	"sync"

	"github.com/Fantom-foundation/mech-interact-abci/kvdb"
)

type producer struct {
	dbs  map[string]*Database
	lock sync.Mutex
}

// NewProducer of memory db.
func NewProducer() kvdb.DbProducer {
	return &producer{
		dbs: make(map[string]*Database),
	}
}

// Names of existing databases.
func (p *producer) Names() []string {
	p.lock.Lock()
	defer p.lock.Unlock()

	names := make([]string, 0, len(p.dbs))
	for name := range p.dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenDB or create db with name.
func (p *producer) OpenDB(name string) (kvdb.DropableStore, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if db, ok := p.dbs[name]; ok && db.tree != nil {
		return db, nil
	}
	db := NewWithDrop(func() {
		p.lock.Lock()
		defer p.lock.Unlock()
		delete(p.dbs, name)
	})
	p.dbs[name] = db
	return db, nil
}
