package unify

import (
	"mercator-hq/callisto/pkg/document"
	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/operator"
	"mercator-hq/callisto/pkg/policy/residual"
)

// CrossRef is the payload of a ::cross-key residual term: a comparison
// between two document paths where at least one side is absent. The
// resolved side's value is retained to support later directed
// resolution.
type CrossRef struct {
	Op         ast.Keyword
	LeftPath   []string
	RightPath  []string
	LeftValue  any
	RightValue any
	LeftFound  bool
	RightFound bool
}

// isPathAccessor reports whether n reads a path whose absence should
// produce a path-keyed residual: document accessors, and binding
// accessors reading into the current element (their keys are
// element-relative and the enclosing traversal splices in the prefix).
func isPathAccessor(n *ast.Node) bool {
	switch n.Type {
	case ast.NodeDocAccessor:
		return true
	case ast.NodeBindingAccessor:
		return len(n.Path) > 0
	}
	return false
}

// evalComparison evaluates a binary operator call. The residual-bearing
// cases all involve path accessors; every other operand shape either
// resolves to concrete values or propagates its operands' residuals.
func (e *evaluator) evalComparison(spec *operator.Spec, node *ast.Node) result {
	left, right := node.Children[0], node.Children[1]
	op := node.Op

	// Normalize "literal op accessor" to "accessor op literal" by
	// flipping the operator, so the residual is keyed by the path.
	if !isPathAccessor(left) && isPathAccessor(right) {
		if flipped, ok := operator.Flip(op); ok {
			fspec, err := e.ops.Resolve(flipped)
			if err == nil {
				left, right = right, left
				op, spec = flipped, fspec
			}
		}
	}

	if isPathAccessor(left) && isPathAccessor(right) {
		return e.evalCrossKey(spec, op, left, right, node)
	}

	if isPathAccessor(left) {
		return e.evalAccessorComparison(spec, op, left, right, node)
	}

	// Neither side reads a path: evaluate both operands and apply the
	// operator directly. Operand residuals (unbound params, self/event
	// misses, nested markers) propagate conjoined.
	lr := e.eval(left)
	rr := e.eval(right)
	if e.err != nil {
		return concrete(nil)
	}
	if !lr.isConcrete() || !rr.isConcrete() {
		return pending(residual.Merge(lr.res, rr.res))
	}
	ok, err := spec.Eval(lr.value, rr.value)
	if err != nil {
		return complexResult("operator-error", err.Error(), node)
	}
	return concrete(ok)
}

// evalAccessorComparison handles the central "path against value"
// case: present data evaluates to satisfied or a conflict carrying the
// witness, absent data becomes an open constraint naming what the
// value must satisfy once it arrives.
func (e *evaluator) evalAccessorComparison(spec *operator.Spec, op ast.Keyword, accessor, operand *ast.Node, node *ast.Node) result {
	expected := e.eval(operand)
	if e.err != nil {
		return concrete(nil)
	}
	if !expected.isConcrete() {
		// The expected side is itself unresolved (unbound param,
		// missing self binding). The constraint cannot be formed, but
		// the path still needs data, so both facts are recorded.
		actual := e.eval(accessor)
		if e.err != nil {
			return concrete(nil)
		}
		if actual.isConcrete() {
			return pending(expected.res)
		}
		return pending(residual.Merge(
			residual.Open(accessor.Path, op, nil),
			expected.res,
		))
	}

	actual := e.eval(accessor)
	if e.err != nil {
		return concrete(nil)
	}
	if !actual.isConcrete() {
		if actual.res.IsOpen() {
			return pending(residual.Open(accessor.Path, op, expected.value))
		}
		// A computed field produced conflicts or markers of its own.
		return pending(actual.res)
	}

	ok, err := spec.Eval(actual.value, expected.value)
	if err != nil {
		return complexResult("operator-error", err.Error(), node)
	}
	if ok {
		return concrete(true)
	}
	return pending(residual.Conflict(accessor.Path, op, expected.value, actual.value))
}

// evalCrossKey compares two paths. With both sides present the
// operator applies directly; with either side absent the residual is a
// ::cross-key entry carrying whatever resolved, rather than two
// unrelated open constraints.
func (e *evaluator) evalCrossKey(spec *operator.Spec, op ast.Keyword, left, right, node *ast.Node) result {
	lv, lfound := e.resolveOperandPath(left)
	if e.err != nil {
		return concrete(nil)
	}
	rv, rfound := e.resolveOperandPath(right)
	if e.err != nil {
		return concrete(nil)
	}

	if lfound && rfound {
		ok, err := spec.Eval(lv, rv)
		if err != nil {
			return complexResult("operator-error", err.Error(), node)
		}
		if ok {
			return concrete(true)
		}
		return pending(residual.Conflict(left.Path, op, rv, lv))
	}

	ref := CrossRef{
		Op:         op,
		LeftPath:   left.Path,
		RightPath:  right.Path,
		LeftFound:  lfound,
		RightFound: rfound,
	}
	if lfound {
		ref.LeftValue = lv
	}
	if rfound {
		ref.RightValue = rv
	}
	return pending(residual.CrossKey(residual.Term{
		Kind:       residual.TermOpen,
		Constraint: residual.Constraint{Op: op, Value: ref},
	}))
}

// resolveOperandPath resolves a path accessor to (value, found) for
// cross-key evaluation.
func (e *evaluator) resolveOperandPath(n *ast.Node) (any, bool) {
	if n.Type == ast.NodeDocAccessor {
		return e.resolveDoc(n.Path)
	}
	elem, bound := e.bindings[n.BindingName]
	if !bound {
		return nil, false
	}
	m, ok := elem.(map[string]any)
	if !ok {
		return nil, false
	}
	return document.Lookup(m, n.Path)
}
