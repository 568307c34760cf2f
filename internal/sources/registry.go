// Package sources wires platform names to their discovery implementations.
// The registry is a constructed object handed to whoever needs it; there is
// deliberately no package-level instance, so tests and multiple dispatchers
// can hold isolated registries.
package sources

import (
	"sort"
	"sync"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
)

type Registry struct {
	mu          sync.RWMutex
	discoverers map[string]ports.SourceDiscoverer
}

func NewRegistry() *Registry {
	return &Registry{discoverers: make(map[string]ports.SourceDiscoverer)}
}

func (r *Registry) Register(platform string, d ports.SourceDiscoverer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discoverers[platform] = d
}

func (r *Registry) Lookup(platform string) (ports.SourceDiscoverer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.discoverers[platform]
	return d, ok
}

func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.discoverers))
	for p := range r.discoverers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
