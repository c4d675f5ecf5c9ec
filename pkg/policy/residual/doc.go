// Package residual implements the three-valued result algebra of policy
// evaluation.
//
// A Residual maps document paths to the constraints still standing
// between the document and the policy. The three logical states are
// distinguished by predicate:
//
//   - satisfied: the empty residual — the policy holds
//   - open: only plain [op value] terms — data is missing, the residual
//     names exactly what would prove the policy
//   - conflict: at least one [conflict constraint witness] term — a
//     constraint was checked against a concrete value and failed
//
// Merge implements AND (constraints accumulate, conflicts propagate);
// Combine implements OR (a satisfied branch collapses the disjunction,
// anything else degrades to a complex or-marker). Callers branch on
// IsSatisfied / HasConflicts / IsOpen rather than on errors: missing
// data is an outcome, not a failure.
package residual
