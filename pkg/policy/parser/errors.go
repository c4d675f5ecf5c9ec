package parser

import (
	"fmt"

	"mercator-hq/callisto/pkg/policy/ast"
)

// ErrorCode categorizes structural parse errors.
type ErrorCode string

const (
	// ErrInvalidFunctionName reports a vector whose head is not a
	// keyword.
	ErrInvalidFunctionName ErrorCode = "invalid-function-name"

	// ErrInvalidPath reports a malformed dotted accessor path (empty,
	// leading/trailing dot, double dot).
	ErrInvalidPath ErrorCode = "invalid-path"

	// ErrInvalidQuantifier reports a forall/exists form with the wrong
	// shape.
	ErrInvalidQuantifier ErrorCode = "invalid-quantifier"

	// ErrInvalidBinding reports a malformed collection binding (bad
	// name, unknown collection namespace, dangling :where).
	ErrInvalidBinding ErrorCode = "invalid-binding"

	// ErrInvalidValueFn reports an fn/ aggregation with the wrong
	// arity or argument shape.
	ErrInvalidValueFn ErrorCode = "invalid-value-fn"

	// ErrInvalidPolicyRef reports a malformed policy reference.
	ErrInvalidPolicyRef ErrorCode = "invalid-policy-ref"

	// ErrInvalidLet reports a let form with a malformed bindings
	// vector (odd arity, non-keyword names).
	ErrInvalidLet ErrorCode = "invalid-let"
)

// Error is a structural parse error. It is returned as a value and
// never panics; the caller decides whether to abort compilation.
type Error struct {
	Code     ErrorCode
	Message  string
	Position ast.Position
	Value    any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position.IsValid() {
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.Position)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (p *parser) errorf(code ErrorCode, pos ast.Position, value any, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
		Value:    value,
	}
}
