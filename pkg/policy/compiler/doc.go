// Package compiler turns sets of policy expressions into precompiled
// per-path checkers for repeated evaluation.
//
// Compilation normalizes the comparison/AND fragment into {path, op,
// value} constraints, merges and simplifies them per path (equality
// consistency, bound tightening, set intersection), and detects
// contradictions up front: a contradicted set compiles to a checker
// that is constantly false. Checking a document then needs no parsing
// and no tree walk.
//
// The trade against the unification engine is deliberate: checkers are
// for throughput and return residuals without conflict witnesses.
package compiler
