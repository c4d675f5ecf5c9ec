// Package unify implements the evaluation core: structural recursion
// over a policy AST against a document, producing a residual.
//
// Evaluation is total over well-formed input. Missing document data
// yields open constraints, failed checks yield conflicts with the
// witnessing value, and sub-results outside the constraint algebra
// (disjunctions, negations of unresolved expressions, unknown
// operators) degrade to complex markers. The only hard faults are
// circular computed-field dependencies and the optional recursion
// bound.
//
// Each call constructs its own evaluator; calls against different
// documents may run concurrently as long as the shared registries are
// populated before evaluation begins.
package unify
