package unify

import (
	"fmt"
	"strings"
)

// CycleError is the single true runtime fault of the engine: a computed
// field whose evaluation depends on itself. No residual can describe
// "this value depends on itself", so the evaluation aborts.
type CycleError struct {
	// Key is the document key whose computed expression closed the
	// cycle.
	Key string

	// Stack is the chain of computed-field keys being evaluated when
	// the cycle was detected.
	Stack []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular computed-field dependency on %q (stack: %s)",
		e.Key, strings.Join(e.Stack, " -> "))
}

// DepthError reports that evaluation exceeded the caller-supplied
// recursion bound.
type DepthError struct {
	MaxDepth int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("evaluation exceeded maximum depth %d", e.MaxDepth)
}
