package engine

import (
	"fmt"
	"sync"

	"github.com/rheijn/flume/pkg/api"
)

// Registry maps a namespaced name (for operations conventionally
// CATEGORY.SUBCATEGORY.Name) to a factory, with a per-name activation flag
// and documentation. A fresh instance is produced per Instantiate; the
// registry never holds instances itself.
//
// Registration normally happens at init time from each unit's own package,
// so the catalog is fixed before any pipeline runs; after startup a Registry
// is read-mostly and safe for concurrent use.
type Registry[T any] struct {
	mu      sync.RWMutex
	names   []string
	entries map[string]*registryEntry[T]
}

type registryEntry[T any] struct {
	factory func() T
	enabled bool
	doc     string
}

// NewRegistry returns an empty catalog.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]*registryEntry[T])}
}

// Register adds a factory under name. Entries start deactivated; a
// deployment enables the units it wants usable via SetEnabled.
// Registering an existing name is an error.
func (r *Registry[T]) Register(name, doc string, factory func() T) error {
	if factory == nil {
		return fmt.Errorf("registry: nil factory for %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %s", api.ErrDuplicateURI, name)
	}
	r.entries[name] = &registryEntry[T]{factory: factory, doc: doc}
	r.names = append(r.names, name)
	return nil
}

// SetEnabled flips the activation flag for name. Enablement restricts which
// units a deployment may instantiate without deleting their definitions.
func (r *Registry[T]) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", api.ErrNotRegistered, name)
	}
	e.enabled = enabled
	return nil
}

// Enabled reports the activation flag; unknown names read as false.
func (r *Registry[T]) Enabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return ok && e.enabled
}

// Instantiate produces a fresh instance of the named unit.
func (r *Registry[T]) Instantiate(name string) (T, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	var zero T
	if !ok {
		return zero, fmt.Errorf("%w: %s", api.ErrNotRegistered, name)
	}
	if !e.enabled {
		return zero, fmt.Errorf("%w: %s", api.ErrDisabled, name)
	}
	return e.factory(), nil
}

// Doc returns the documentation registered under name.
func (r *Registry[T]) Doc(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.doc
	}
	return ""
}

// Names returns every registered name in registration order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// ActivationFlags snapshots the enabled flag of every entry, keyed by name.
// This is the portion of registry state that persists with a saved
// orchestrator.
func (r *Registry[T]) ActivationFlags() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flags := make(map[string]bool, len(r.entries))
	for name, e := range r.entries {
		flags[name] = e.enabled
	}
	return flags
}
