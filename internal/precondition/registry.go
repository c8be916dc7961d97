package precondition

import (
	"log/slog"
	"sync"

	kasherrors "github.com/kashrun/kash/pkg/errors"
)

// Registry is a thread-safe, name-keyed collection of Preconditions,
// mirroring action.Registry's shape (internal/action/registry.go) for the
// same reason: concurrent registration from multiple built-in packages at
// startup, and concurrent lookup afterward.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Precondition
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Precondition)}
}

// Register adds p under its own name, logging and overwriting on a
// duplicate name rather than failing.
func (r *Registry) Register(p Precondition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.items[name]; exists {
		slog.Warn("duplicate precondition name, overwriting", "name", name)
	}
	r.items[name] = p
}

// Get returns the precondition registered under name.
func (r *Registry) Get(name string) (Precondition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[name]
	if !ok {
		return Precondition{}, &kasherrors.NotFoundError{Resource: "precondition", ID: name}
	}
	return p, nil
}

// All returns a defensive copy of every registered precondition, keyed by
// name.
func (r *Registry) All() map[string]Precondition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Precondition, len(r.items))
	for k, v := range r.items {
		out[k] = v
	}
	return out
}

// Len reports how many preconditions are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
