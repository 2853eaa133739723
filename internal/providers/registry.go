package providers

import (
	"fmt"
	"sync"
)

// Registry holds the set of reputation providers available to the
// orchestrator. It is an explicit value built at process start and passed
// by injection; nothing reads it as ambient global state. Registration
// order is preserved so evidence listings are stable.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	ordered   []Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry. It panics if the provider is
// nil or its ID is already registered.
func (r *Registry) Register(p Provider) {
	if p == nil {
		panic("providers: Register called with nil provider")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.providers[p.ID()]; dup {
		panic(fmt.Sprintf("providers: Register called twice for id %q", p.ID()))
	}
	r.providers[p.ID()] = p
	r.ordered = append(r.ordered, p)
}

// Get retrieves a provider by its exact ID.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, found := r.providers[id]
	return p, found
}

// HashLookupers returns the configured providers capable of digest
// lookups, in registration order.
func (r *Registry) HashLookupers() []HashLookuper {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []HashLookuper
	for _, p := range r.ordered {
		if hl, ok := p.(HashLookuper); ok && p.Configured() {
			out = append(out, hl)
		}
	}
	return out
}

// URLLookupers returns the configured providers capable of URL lookups,
// in registration order.
func (r *Registry) URLLookupers() []URLLookuper {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []URLLookuper
	for _, p := range r.ordered {
		if ul, ok := p.(URLLookuper); ok && p.Configured() {
			out = append(out, ul)
		}
	}
	return out
}
