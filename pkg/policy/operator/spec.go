package operator

import (
	"fmt"

	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/residual"
)

// EvalFunc checks an actual document value against the expected policy
// value. A returned error means the operator does not apply to these
// operands (type mismatch, bad pattern); the engine treats that as an
// unknown result, never as a policy violation.
//
// EvalFunc must be pure and total over its declared domain.
type EvalFunc func(actual, expected any) (bool, error)

// SimplifyResult is the outcome of merging several constraints that
// share one operator on one path at compile time.
type SimplifyResult struct {
	// Contradicted means no value can satisfy all the constraints.
	Contradicted bool

	// Simplified is the reduced constraint set (ignored when
	// Contradicted).
	Simplified []residual.Constraint
}

// SimplifyFunc merges constraints sharing this operator on a single
// path.
type SimplifyFunc func(constraints []residual.Constraint) SimplifyResult

// SubsumesFunc reports whether constraint a makes constraint b
// redundant (every value satisfying a satisfies b).
type SubsumesFunc func(a, b residual.Constraint) bool

// Spec describes a comparison operator. Eval is mandatory; the rest is
// optional capability the compiler and negator exploit when present.
type Spec struct {
	// Key is the operator keyword ("=", "<", "in", ...).
	Key ast.Keyword

	// Eval checks actual against expected.
	Eval EvalFunc

	// NegateKey names the registered operator whose Eval is the
	// logical complement. Empty if the operator has no negation.
	NegateKey ast.Keyword

	// Simplify merges same-operator constraints at compile time.
	Simplify SimplifyFunc

	// Subsumes reports constraint redundancy.
	Subsumes SubsumesFunc
}

// Validate checks the spec shape. Registration rejects malformed specs
// instead of silently dropping fields.
func (s *Spec) Validate() error {
	if s.Key == "" {
		return &ValidationError{Message: "operator key cannot be empty"}
	}
	if s.Eval == nil {
		return &ValidationError{Key: s.Key, Message: "operator must supply an eval function"}
	}
	return nil
}

// ValidationError reports a malformed operator spec at registration.
type ValidationError struct {
	Key     ast.Keyword
	Message string
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid operator spec: %s", e.Message)
	}
	return fmt.Sprintf("invalid operator spec %q: %s", e.Key, e.Message)
}

// Flip returns the operator to use when the operands of a comparison
// are swapped (literal on the left). Symmetric operators flip to
// themselves; operators with no meaningful swap report false.
func Flip(key ast.Keyword) (ast.Keyword, bool) {
	switch key {
	case "=", "!=":
		return key, true
	case "<":
		return ">", true
	case ">":
		return "<", true
	case "<=":
		return ">=", true
	case ">=":
		return "<=", true
	default:
		return "", false
	}
}
