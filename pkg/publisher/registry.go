package publisher

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds publishers by name.
type Registry struct {
	mu         sync.RWMutex
	publishers map[string]Publisher
}

// NewRegistry creates a registry holding the given publishers.
func NewRegistry(publishers ...Publisher) (*Registry, error) {
	r := &Registry{publishers: make(map[string]Publisher)}
	for _, p := range publishers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register registers a publisher under its name.
// If a publisher with the same name is already registered, it returns an error.
func (r *Registry) Register(publisher Publisher) error {
	if publisher == nil {
		return fmt.Errorf("cannot register nil publisher")
	}

	name := publisher.Name()
	if name == "" {
		return fmt.Errorf("publisher name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.publishers == nil {
		r.publishers = make(map[string]Publisher)
	}
	if _, exists := r.publishers[name]; exists {
		return fmt.Errorf("publisher '%s' is already registered", name)
	}

	r.publishers[name] = publisher
	return nil
}

// Unregister removes a publisher from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.publishers[name]; !exists {
		return fmt.Errorf("publisher '%s' is not registered", name)
	}

	delete(r.publishers, name)
	return nil
}

// Get retrieves a publisher by name.
// Returns nil if the publisher is not found.
func (r *Registry) Get(name string) Publisher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.publishers[name]
}

// Lookup is Get with an error naming the available publishers.
func (r *Registry) Lookup(name string) (Publisher, error) {
	if p := r.Get(name); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("unknown publisher '%s' (available: %v)", name, r.List())
}

// List returns all registered publisher names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.publishers))
	for name := range r.publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a publisher with the given name is registered.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.publishers[name]
	return exists
}
