package marketplace

import (
	"sync"

	"github.com/sellsync/backend/internal/domain/marketplace"
)

// Registry implements AdapterRegistry as a code-keyed adapter factory
type Registry struct {
	mu       sync.RWMutex
	adapters map[marketplace.Code]marketplace.Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[marketplace.Code]marketplace.Adapter)}
}

// Register adds an adapter; an existing adapter for the same code is replaced
func (r *Registry) Register(adapter marketplace.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Marketplace()] = adapter
}

// Get returns the adapter for the given marketplace code
func (r *Registry) Get(code marketplace.Code) (marketplace.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[code]
	if !ok {
		return nil, marketplace.ErrAdapterNotRegistered
	}
	return adapter, nil
}

// List returns all registered adapters
func (r *Registry) List() []marketplace.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapters := make([]marketplace.Adapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		adapters = append(adapters, adapter)
	}
	return adapters
}

var _ marketplace.AdapterRegistry = (*Registry)(nil)
