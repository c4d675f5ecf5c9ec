package module

import (
	"sort"

	"mercator-hq/callisto/pkg/policy/ast"
)

// LoadModules validates a set of module definitions, orders them so
// dependencies load first, and folds them into the registry.
//
// The load is atomic: any validation failure, duplicate namespace,
// import cycle, or missing import returns a LoadError and leaves the
// supplied registry untouched (it is never mutated; on success a new
// registry is returned).
func LoadModules(reg *Registry, defs []ModuleDef) (*Registry, error) {
	if reg == nil {
		reg = NewRegistry()
	}

	// Shape validation and duplicate detection first, so graph
	// construction only sees well-formed definitions.
	byNS := make(map[string]ModuleDef, len(defs))
	for _, def := range defs {
		if def.Namespace == "" {
			return nil, &LoadError{Code: ErrInvalidModule, Message: "module definition has no namespace"}
		}
		if ast.IsReservedNamespace(def.Namespace) {
			return nil, &LoadError{
				Code:      ErrReservedNamespace,
				Namespace: def.Namespace,
				Message:   "reserved namespaces cannot be registered as modules",
			}
		}
		if _, dup := byNS[def.Namespace]; dup {
			return nil, &LoadError{
				Code:      ErrDuplicateNamespace,
				Namespace: def.Namespace,
				Message:   "namespace declared more than once in this load",
			}
		}
		byNS[def.Namespace] = def
	}

	// Every import must be satisfied by this load or by an already
	// registered namespace.
	for _, def := range defs {
		for _, imp := range def.Imports {
			if _, inLoad := byNS[imp]; !inLoad && !reg.Has(imp) {
				return nil, &LoadError{
					Code:      ErrMissingImport,
					Namespace: def.Namespace,
					Message:   "import " + imp + " is not in this load and not already registered",
				}
			}
		}
	}

	order, lerr := topoSort(byNS)
	if lerr != nil {
		return nil, lerr
	}

	out := reg
	for _, ns := range order {
		next, err := out.RegisterModule(ns, byNS[ns])
		if err != nil {
			return nil, err.(*LoadError)
		}
		out = next
	}
	return out, nil
}

// topoSort runs DFS cycle detection and post-order topological sorting
// over the import graph, so dependencies precede dependents. Roots are
// visited in sorted order for deterministic load order.
func topoSort(byNS map[string]ModuleDef) ([]string, *LoadError) {
	visited := make(map[string]bool, len(byNS))
	visiting := make(map[string]bool, len(byNS))
	var order []string

	var visit func(ns string, stack []string) *LoadError
	visit = func(ns string, stack []string) *LoadError {
		if visited[ns] {
			return nil
		}
		if visiting[ns] {
			cycle := append(append([]string(nil), stack...), ns)
			return &LoadError{
				Code:      ErrCircularImport,
				Namespace: ns,
				Message:   "circular import detected",
				Cycle:     trimCycle(cycle, ns),
			}
		}

		visiting[ns] = true
		stack = append(stack, ns)

		def := byNS[ns]
		for _, imp := range def.Imports {
			if _, inLoad := byNS[imp]; !inLoad {
				continue // satisfied by the existing registry
			}
			if err := visit(imp, stack); err != nil {
				return err
			}
		}

		visiting[ns] = false
		visited[ns] = true
		order = append(order, ns)
		return nil
	}

	roots := make([]string, 0, len(byNS))
	for ns := range byNS {
		roots = append(roots, ns)
	}
	sort.Strings(roots)

	for _, ns := range roots {
		if err := visit(ns, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// trimCycle cuts the DFS stack down to the cycle itself, starting and
// ending at the revisited namespace.
func trimCycle(stack []string, start string) []string {
	for i, ns := range stack {
		if ns == start {
			return stack[i:]
		}
	}
	return stack
}
