// Package operator implements the extensible comparison-operator
// registry used by the unification engine and the constraint compiler.
//
// An operator is a Spec: a mandatory pure Eval function plus optional
// capabilities — a NegateKey naming its logical complement, a Simplify
// function merging same-operator constraints at compile time, and a
// Subsumes redundancy check.
//
// Built-ins cover =, !=, <, >, <=, >=, in, not-in, matches and
// not-matches. Custom operators register against a Registry; the
// process-wide Default registry is populated at init and intended for
// startup-time registration, while hosts needing isolated or
// runtime-mutated operator sets construct their own.
//
// During evaluation a Context layers per-call overrides over a registry
// over a caller fallback, optionally strict about unresolved keys.
package operator
