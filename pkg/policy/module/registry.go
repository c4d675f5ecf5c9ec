package module

import (
	"sort"

	"mercator-hq/callisto/pkg/policy/ast"
)

// EntryType classifies registry entries.
type EntryType string

const (
	EntryModule EntryType = "module"
	EntryAlias  EntryType = "alias"
)

// Entry is one namespace in the registry: a module holding named
// policies, or an alias pointing at another namespace.
type Entry struct {
	Type        EntryType
	Description string

	// Policies maps policy names to their parsed definitions (modules
	// only).
	Policies map[string]*Policy

	// Imports are the namespaces this module depends on (modules only).
	Imports []string

	// Target is the aliased namespace (aliases only).
	Target string
}

// Registry is an immutable, versioned map from namespace to entry.
// Every mutation returns a new registry with an incremented version;
// callers use the version for cache invalidation.
type Registry struct {
	entries map[string]Entry
	version int
}

// NewRegistry creates an empty registry at version 0.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Version returns the registry version.
func (r *Registry) Version() int {
	return r.version
}

// Namespaces returns the sorted registered namespaces.
func (r *Registry) Namespaces() []string {
	out := make([]string, 0, len(r.entries))
	for ns := range r.entries {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Has reports whether a namespace is registered.
func (r *Registry) Has(ns string) bool {
	_, ok := r.entries[ns]
	return ok
}

// with returns a copy of the registry with one entry replaced and the
// version bumped.
func (r *Registry) with(ns string, entry Entry) *Registry {
	entries := make(map[string]Entry, len(r.entries)+1)
	for k, v := range r.entries {
		entries[k] = v
	}
	entries[ns] = entry
	return &Registry{entries: entries, version: r.version + 1}
}

// RegisterModule returns a new registry containing the module. The
// receiver is not modified. Reserved namespaces are rejected.
func (r *Registry) RegisterModule(ns string, def ModuleDef) (*Registry, error) {
	if ns == "" {
		return nil, &LoadError{Code: ErrInvalidModule, Message: "namespace cannot be empty"}
	}
	if ast.IsReservedNamespace(ns) {
		return nil, &LoadError{
			Code:      ErrReservedNamespace,
			Namespace: ns,
			Message:   "reserved namespaces cannot be registered as modules",
		}
	}

	policies := make(map[string]*Policy, len(def.Policies))
	for name, raw := range def.Policies {
		p, lerr := normalizePolicy(ns, name, raw)
		if lerr != nil {
			return nil, lerr
		}
		policies[name] = p
	}

	return r.with(ns, Entry{
		Type:        EntryModule,
		Description: def.Description,
		Policies:    policies,
		Imports:     append([]string(nil), def.Imports...),
	}), nil
}

// RegisterAlias returns a new registry mapping ns to target. Aliases
// resolve one hop; an alias pointing at an alias resolves to the
// intermediate entry, not transitively.
func (r *Registry) RegisterAlias(ns, target string) (*Registry, error) {
	if ast.IsReservedNamespace(ns) {
		return nil, &LoadError{
			Code:      ErrReservedNamespace,
			Namespace: ns,
			Message:   "reserved namespaces cannot be aliased",
		}
	}
	if target == "" {
		return nil, &LoadError{Code: ErrInvalidModule, Namespace: ns, Message: "alias target cannot be empty"}
	}
	return r.with(ns, Entry{Type: EntryAlias, Target: target}), nil
}

// ResolveNamespace looks up an entry, following at most one alias hop.
func (r *Registry) ResolveNamespace(ns string) (Entry, bool) {
	entry, ok := r.entries[ns]
	if !ok {
		return Entry{}, false
	}
	if entry.Type == EntryAlias {
		entry, ok = r.entries[entry.Target]
		if !ok {
			return Entry{}, false
		}
	}
	return entry, true
}

// ResolvePolicy looks up a named policy inside a resolved namespace.
func (r *Registry) ResolvePolicy(ns, name string) (*Policy, bool) {
	entry, ok := r.ResolveNamespace(ns)
	if !ok || entry.Type != EntryModule {
		return nil, false
	}
	p, ok := entry.Policies[name]
	return p, ok
}

// ModuleDef is the input shape of a module definition.
type ModuleDef struct {
	// Namespace the module registers under.
	Namespace string

	// Imports are namespaces the module depends on; they load first.
	Imports []string

	// Policies maps policy names to definitions: a bare expression or
	// a PolicySpec.
	Policies map[string]any

	// Description is an optional module docstring.
	Description string
}
