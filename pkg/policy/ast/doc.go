// Package ast defines the Abstract Syntax Tree for Callisto policy
// expressions.
//
// Policies are written as nested vectors (see pkg/policy/parser) and
// parsed once into this closed set of node variants. Every downstream
// component — the unification engine, the constraint compiler, the
// negator — dispatches exhaustively on NodeType, so adding a variant
// forces every dispatch site to be revisited.
//
// # Core Types
//
// Node: tagged tree node with an explicit NodeType discriminant
//
// Keyword: namespaced symbolic identifier ("doc/user.name", "=", "forall")
//
// Binding: a quantifier's named reference to the current element
//
// Position: token-index range for diagnostics
//
// # Immutability
//
// Nodes are built once by the parser and never mutated. Transformations
// such as negation construct new trees.
package ast
