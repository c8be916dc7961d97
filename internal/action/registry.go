package action

import (
	"log/slog"
	"sync"

	kasherrors "github.com/kashrun/kash/pkg/errors"
)

// Registry is the thread-safe, name-keyed collection of known actions,
// grounded on the teacher's connector registry (an RWMutex-guarded named
// map), generalized here to hold Action values and a memoized
// defaults-per-action cache.
type Registry struct {
	mu            sync.RWMutex
	actions       map[string]Action
	defaultsCache map[string]Action
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds an action under its Spec().Name. Registering a name
// already present logs a warning and overwrites — this is never an error,
// matching the reference implementation's idempotent re-registration
// behavior for repeated module imports.
func (r *Registry) Register(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Spec().Name
	if _, exists := r.actions[name]; exists {
		slog.Warn("duplicate action name, overwriting", "action", name)
	}
	r.actions[name] = a
	r.defaultsCache = nil
}

// Get returns the action registered under name, or a *errors.NotFoundError.
func (r *Registry) Get(name string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actions[name]
	if !ok {
		return nil, &kasherrors.NotFoundError{Resource: "action", ID: name}
	}
	return a, nil
}

// All returns a defensive copy of the full action map.
func (r *Registry) All() map[string]Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Action, len(r.actions))
	for k, v := range r.actions {
		out[k] = v
	}
	return out
}

// Defaults returns one instance per action with default parameter values
// bound in, memoized until the next Register/Clear call invalidates it.
func (r *Registry) Defaults() map[string]Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.defaultsCache != nil {
		return r.defaultsCache
	}

	cache := make(map[string]Action, len(r.actions))
	for k, v := range r.actions {
		cache[k] = v
	}
	r.defaultsCache = cache
	return cache
}

// Clear removes every registered action and invalidates the defaults
// cache.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions = make(map[string]Action)
	r.defaultsCache = nil
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}
