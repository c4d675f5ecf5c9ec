package collection

import (
	"sort"
	"sync"

	"mercator-hq/callisto/pkg/policy/ast"
)

// Registry is a thread-safe table of collection operators. Like the
// comparison-operator registry it is expected to be populated at
// startup, before concurrent evaluation begins.
type Registry struct {
	mu  sync.RWMutex
	ops map[ast.Keyword]*Op
}

// NewRegistry creates an empty collection-op registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[ast.Keyword]*Op)}
}

// Register validates and adds a collection op, replacing any existing
// op with the same key.
func (r *Registry) Register(op Op) error {
	if err := op.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o := op
	r.ops[op.Key] = &o
	return nil
}

// Get retrieves a collection op by key.
func (r *Registry) Get(key ast.Keyword) (*Op, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.ops[key]
	return o, ok
}

// Keys returns the sorted op keys.
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

var defaultRegistry = NewRegistry()

// Default returns the process-wide collection-op registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a collection op to the process-wide registry.
func Register(op Op) error {
	return defaultRegistry.Register(op)
}

// Get retrieves a collection op from the process-wide registry.
func Get(key ast.Keyword) (*Op, bool) {
	return defaultRegistry.Get(key)
}
