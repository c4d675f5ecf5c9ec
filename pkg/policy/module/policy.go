package module

import (
	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/parser"
	"mercator-hq/callisto/pkg/policy/residual"
)

// Policy is a named, immutable policy inside a module: parsed once at
// load, never modified afterwards.
type Policy struct {
	// Name is the policy name within its namespace.
	Name string

	// Description is the optional docstring.
	Description string

	// Params maps parameter names to their module-level defaults. A
	// nil default marks the parameter required.
	Params map[string]any

	// AST is the parsed policy expression.
	AST *ast.Node

	// Schema is the set of document paths the policy accesses, keyed
	// the way residuals key paths.
	Schema map[string]bool
}

// PolicySpec is the explicit policy definition form. Module authors
// may also supply a bare expression, which normalizes to a spec with
// no params and no description.
type PolicySpec struct {
	Expr        any
	Params      map[string]any
	Description string
}

// normalizePolicy accepts either a bare expression or a *PolicySpec /
// PolicySpec value and produces the parsed, schema-annotated Policy.
func normalizePolicy(namespace, name string, def any) (*Policy, *LoadError) {
	spec := PolicySpec{}
	switch d := def.(type) {
	case PolicySpec:
		spec = d
	case *PolicySpec:
		spec = *d
	default:
		spec.Expr = def
	}

	if spec.Expr == nil {
		return nil, &LoadError{
			Code:      ErrInvalidPolicy,
			Namespace: namespace,
			Policy:    name,
			Message:   "policy has no expression",
		}
	}

	node, err := parser.Parse(spec.Expr)
	if err != nil {
		return nil, &LoadError{
			Code:      ErrInvalidPolicy,
			Namespace: namespace,
			Policy:    name,
			Message:   "policy expression failed to parse",
			Err:       err,
		}
	}

	return &Policy{
		Name:        name,
		Description: spec.Description,
		Params:      spec.Params,
		AST:         node,
		Schema:      collectSchema(node),
	}, nil
}

// collectSchema walks the AST gathering every document path the policy
// touches.
func collectSchema(node *ast.Node) map[string]bool {
	schema := make(map[string]bool)
	_ = ast.Walk(node, func(n *ast.Node) error {
		if n.Type == ast.NodeDocAccessor {
			schema[residual.PathKey(n.Path)] = true
		}
		if n.Binding != nil && n.Binding.Namespace == ast.NamespaceDoc {
			schema[residual.PathKey(n.Binding.Path)] = true
		}
		return nil
	})
	return schema
}
