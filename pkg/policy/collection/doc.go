// Package collection implements the extensible quantifier and
// aggregation registry and the collection traversal algorithm.
//
// A collection operator (Op) folds the elements of a bound collection:
// quantifiers (forall, exists) reduce per-element body results to a
// boolean and may short-circuit; aggregations (count, sum) reduce the
// elements themselves to a value. Operators must be order-independent
// in their result — collection order may only affect when a
// short-circuit fires.
//
// Traverse connects an operator to the evaluator through Hooks,
// handling binding resolution, vacuous-truth empty collections, the
// filterless count fast path, :where filters (with deferred residuals
// for quantifiers so missing filter data is only reported when it
// matters), and residual keys with the element index spliced into the
// collection path.
package collection
