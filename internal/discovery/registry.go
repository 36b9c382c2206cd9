package discovery

import (
	"sync"

	"github.com/zjrosen/plugboard/internal/extension"
)

// FactoryRegistry maps extension IDs to the factories that construct
// them. Go has no dynamic code loading, so hosts register every factory
// they ship at startup; a discovered manifest without a registered
// factory is skipped.
type FactoryRegistry struct {
	mu        sync.RWMutex
	factories map[string]extension.Factory
}

// NewFactoryRegistry creates an empty factory registry.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{factories: make(map[string]extension.Factory)}
}

// Register associates a factory with an extension ID, replacing any
// previous registration.
func (r *FactoryRegistry) Register(id string, factory extension.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = factory
}

// Lookup returns the factory for id and whether one is registered.
func (r *FactoryRegistry) Lookup(id string) (extension.Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[id]
	return f, ok
}

// IDs returns every registered extension ID.
func (r *FactoryRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for id := range r.factories {
		out = append(out, id)
	}
	return out
}
