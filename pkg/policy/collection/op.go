package collection

import (
	"fmt"

	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/residual"
)

// Kind distinguishes boolean quantifiers from value aggregations.
type Kind string

const (
	// KindQuantifier ops (forall, exists) reduce element body results
	// to a boolean.
	KindQuantifier Kind = "quantifier"

	// KindAggregation ops (count, sum) reduce the elements themselves
	// to a value.
	KindAggregation Kind = "aggregation"
)

// StepResult is what ProcessElement returns: either an updated state,
// or a short-circuit that terminates traversal immediately with Value,
// discarding any residuals accumulated so far.
type StepResult struct {
	ShortCircuit bool
	Value        any
	State        any
}

// Continue produces the non-short-circuiting step result.
func Continue(state any) StepResult {
	return StepResult{State: state}
}

// ShortCircuit terminates the traversal with value.
func ShortCircuit(value any) StepResult {
	return StepResult{ShortCircuit: true, Value: value}
}

// Result is the outcome of a traversal: a concrete value (bool for
// quantifiers, aggregate for aggregations) or a residual naming the
// missing data.
type Result struct {
	Value    any
	Residual residual.Residual
}

// IsResidual returns true if the traversal could not conclude.
func (r Result) IsResidual() bool {
	return r.Residual != nil && !r.Residual.IsSatisfied()
}

// Op describes a collection operator.
//
// ProcessElement must be order-independent in its final result even
// though it runs in collection order: ordering may only affect when a
// short-circuit fires, never what the answer is.
type Op struct {
	// Key is the operator keyword ("forall", "exists", "count", "sum").
	Key ast.Keyword

	// Kind classifies the operator.
	Kind Kind

	// EmptyResult is the result over an empty (or absent-but-typed)
	// collection: vacuous truth for forall, false for exists, zero for
	// count/sum.
	EmptyResult any

	// InitState produces the fold state for a fresh traversal.
	InitState func() any

	// ProcessElement folds one included element. result is the body's
	// concrete value for quantifiers and nil for aggregations.
	ProcessElement func(state any, elem any, result any, idx int) StepResult

	// Finalize produces the final result after exhausting the
	// collection without a short-circuit. Non-empty residuals mean the
	// traversal is undetermined.
	Finalize func(state any, residuals residual.Residual) Result
}

// Validate checks the op shape at registration.
func (o *Op) Validate() error {
	if o.Key == "" {
		return &ValidationError{Message: "collection op key cannot be empty"}
	}
	if o.Kind != KindQuantifier && o.Kind != KindAggregation {
		return &ValidationError{Key: o.Key, Message: fmt.Sprintf("invalid kind %q", o.Kind)}
	}
	if o.InitState == nil || o.ProcessElement == nil || o.Finalize == nil {
		return &ValidationError{Key: o.Key, Message: "init-state, process-element and finalize are all required"}
	}
	return nil
}

// ValidationError reports a malformed collection op at registration.
type ValidationError struct {
	Key     ast.Keyword
	Message string
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid collection op: %s", e.Message)
	}
	return fmt.Sprintf("invalid collection op %q: %s", e.Key, e.Message)
}
