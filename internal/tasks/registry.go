package tasks

import (
	"slices"
	"sync"

	"git.home.luguber.info/inful/quicksip/internal/config"
)

// Registry maps task prefixes to their TaskSet. Each prefix is bound once.
type Registry struct {
	mu   sync.Mutex
	sets map[string]*TaskSet
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*TaskSet)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// GetOrCreate binds a TaskSet for prefix on the process-wide registry.
func GetOrCreate(prefix string, cfg *config.Config, deps Deps) *TaskSet {
	return defaultRegistry.GetOrCreate(prefix, cfg, deps)
}

// GetOrCreate returns the TaskSet bound to prefix, creating it from cfg and
// deps on first use. Later calls return the same instance and ignore cfg and
// deps; reconfigure through TaskSet.Options or TaskSet.Update instead.
func (r *Registry) GetOrCreate(prefix string, cfg *config.Config, deps Deps) *TaskSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ts, ok := r.sets[prefix]; ok {
		return ts
	}
	ts := newTaskSet(prefix, cfg, deps)
	r.sets[prefix] = ts
	return ts
}

// Lookup returns the TaskSet bound to prefix, if any.
func (r *Registry) Lookup(prefix string) (*TaskSet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.sets[prefix]
	return ts, ok
}

// Prefixes lists the bound prefixes, sorted.
func (r *Registry) Prefixes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sets))
	for p := range r.sets {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
