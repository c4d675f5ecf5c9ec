package operator

import (
	"fmt"

	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/residual"
)

// UnknownOperatorError reports that no layer of an evaluation context
// could resolve an operator key.
type UnknownOperatorError struct {
	Key ast.Keyword
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator: %q", e.Key)
}

// Context resolves operators during a single evaluation. Resolution
// layers, in order: explicit per-call overrides, the registry, the
// caller-supplied fallback. In strict mode an unresolved key is an
// error; otherwise it surfaces as unknown and the engine degrades to a
// complex result.
type Context struct {
	// Overrides take precedence over everything for this evaluation.
	Overrides map[ast.Keyword]*Spec

	// Registry is the operator table to consult (the process default
	// if nil).
	Registry *Registry

	// Fallback resolves keys missing from both overrides and registry.
	Fallback func(key ast.Keyword) (*Spec, bool)

	// Strict turns unresolved keys into errors.
	Strict bool
}

// NewContext creates a context over the given registry (the process
// default if nil).
func NewContext(reg *Registry) *Context {
	if reg == nil {
		reg = Default()
	}
	return &Context{Registry: reg}
}

// Resolve finds the operator for key, walking the context layers.
func (c *Context) Resolve(key ast.Keyword) (*Spec, error) {
	if c.Overrides != nil {
		if s, ok := c.Overrides[key]; ok {
			return s, nil
		}
	}

	reg := c.Registry
	if reg == nil {
		reg = Default()
	}
	if s, ok := reg.Get(key); ok {
		return s, nil
	}

	if c.Fallback != nil {
		if s, ok := c.Fallback(key); ok {
			return s, nil
		}
	}

	return nil, &UnknownOperatorError{Key: key}
}

// Eval resolves the constraint's operator and applies it to value.
// The boolean is meaningful only when err is nil; an error is either
// UnknownOperatorError or the operator's own inapplicability report.
func (c *Context) Eval(constraint residual.Constraint, value any) (bool, error) {
	spec, err := c.Resolve(constraint.Op)
	if err != nil {
		return false, err
	}
	return spec.Eval(value, constraint.Value)
}
