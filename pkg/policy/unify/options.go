package unify

import (
	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/collection"
	"mercator-hq/callisto/pkg/policy/module"
	"mercator-hq/callisto/pkg/policy/operator"
)

// unboundSentinel marks a parameter as explicitly unbound for partial
// application.
type unboundSentinel struct{}

// Unbound marks a parameter slot as deliberately left open: the
// evaluation proceeds and the residual names the parameter.
var Unbound = unboundSentinel{}

// Options configure a single evaluation. The zero value evaluates with
// the process-default operator and collection registries, no module
// registry, and no parameters.
type Options struct {
	// Operators layers per-call operator overrides, a registry, and a
	// fallback. Nil uses the default registry.
	Operators *operator.Context

	// Collections is the quantifier/aggregation registry. Nil uses the
	// default registry.
	Collections *collection.Registry

	// Registry resolves policy references. Nil makes every policy
	// reference a complex result.
	Registry *module.Registry

	// Params are caller-supplied parameter bindings. A parameter bound
	// to Unbound is treated as deliberately open.
	Params map[string]any

	// Self seeds let-visible bindings.
	Self map[string]any

	// Event is the trigger payload for event accessors.
	Event map[string]any

	// Trace, when non-nil, records collection traversal statistics.
	Trace *collection.Trace

	// MaxDepth bounds quantifier, policy-reference, and computed-field
	// recursion. Zero means unbounded.
	MaxDepth int
}

func (o *Options) operatorContext() *operator.Context {
	if o != nil && o.Operators != nil {
		return o.Operators
	}
	return operator.NewContext(nil)
}

func (o *Options) collections() *collection.Registry {
	if o != nil && o.Collections != nil {
		return o.Collections
	}
	return collection.Default()
}

func (o *Options) registry() *module.Registry {
	if o == nil {
		return nil
	}
	return o.Registry
}

func (o *Options) params() map[string]any {
	if o == nil {
		return nil
	}
	return o.Params
}

func (o *Options) self() map[string]any {
	if o == nil {
		return nil
	}
	return o.Self
}

func (o *Options) event() map[string]any {
	if o == nil {
		return nil
	}
	return o.Event
}

func (o *Options) trace() *collection.Trace {
	if o == nil {
		return nil
	}
	return o.Trace
}

func (o *Options) maxDepth() int {
	if o == nil {
		return 0
	}
	return o.MaxDepth
}

// isPolicyExpr reports whether a document value looks like an embedded
// policy expression (a non-empty vector with a keyword head), which
// makes it a computed field.
func isPolicyExpr(v any) bool {
	vec, ok := v.([]any)
	if !ok || len(vec) == 0 {
		return false
	}
	switch head := vec[0].(type) {
	case ast.Keyword:
		return true
	case string:
		return len(head) > 1 && head[0] == ':'
	}
	return false
}
