package store

import (
	"sync"

	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/store/storepath"
)

// idIndex maps an item's deduplication ID to the store path it currently
// lives at.
type idIndex struct {
	mu   sync.RWMutex
	byID map[item.ID]storepath.Path
}

func newIDIndex() *idIndex {
	return &idIndex{byID: make(map[item.ID]storepath.Path)}
}

// lookup returns the path currently indexed for id, if any.
func (x *idIndex) lookup(id item.ID) (storepath.Path, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	p, ok := x.byID[id]
	return p, ok
}

// index records id -> path. If id already maps to a different path, the
// prior path is returned so the caller can decide what to do (the index
// never silently deletes an existing mapping).
func (x *idIndex) index(id item.ID, p storepath.Path) (prior storepath.Path, hadPrior bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	prior, hadPrior = x.byID[id]
	x.byID[id] = p
	return prior, hadPrior
}

// remove deletes id's mapping, if present.
func (x *idIndex) remove(id item.ID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.byID, id)
}

// reset clears the whole index, used when rebuilding from a fresh walk.
func (x *idIndex) reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byID = make(map[item.ID]storepath.Path)
}
