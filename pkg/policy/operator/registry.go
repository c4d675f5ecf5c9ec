package operator

import (
	"sort"
	"sync"

	"mercator-hq/callisto/pkg/policy/ast"
)

// Registry is a thread-safe table of comparison operators. Reads during
// evaluation see a consistent snapshot: a spec is validated and copied
// before it becomes visible, never published half-constructed.
type Registry struct {
	mu  sync.RWMutex
	ops map[ast.Keyword]*Spec
}

// NewRegistry creates an empty operator registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[ast.Keyword]*Spec)}
}

// Register validates and adds an operator spec. An existing operator
// with the same key is replaced.
func (r *Registry) Register(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := spec
	r.ops[spec.Key] = &s
	return nil
}

// Get retrieves an operator by key.
func (r *Registry) Get(key ast.Keyword) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.ops[key]
	return s, ok
}

// Keys returns the sorted operator keys.
func (r *Registry) Keys() []ast.Keyword {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]ast.Keyword, 0, len(r.ops))
	for k := range r.ops {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone returns a registry with the same operators, sharing no map
// structure with the original.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := NewRegistry()
	for k, s := range r.ops {
		out.ops[k] = s
	}
	return out
}

// defaultRegistry holds the built-in comparison operators and any
// process-wide custom registrations. It is populated at init time;
// hosts needing isolated operator sets construct their own Registry.
var defaultRegistry = NewRegistry()

// Default returns the process-wide operator registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds an operator to the process-wide registry.
func Register(spec Spec) error {
	return defaultRegistry.Register(spec)
}

// Get retrieves an operator from the process-wide registry.
func Get(key ast.Keyword) (*Spec, bool) {
	return defaultRegistry.Get(key)
}
