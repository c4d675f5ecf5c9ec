package residual

import (
	"fmt"
	"sort"
	"strings"

	"mercator-hq/callisto/pkg/policy/ast"
)

// TermKind discriminates the constraint terms a residual path can carry.
type TermKind string

const (
	// TermOpen records a constraint that could not be checked because
	// the document value is absent.
	TermOpen TermKind = "open"

	// TermConflict records a constraint that was checked against a
	// concrete value and failed; the offending value is retained as the
	// witness.
	TermConflict TermKind = "conflict"

	// TermComplex records a sub-result that is not representable as a
	// flat constraint (quantifier residuals, OR branches, unknown
	// operators).
	TermComplex TermKind = "complex"
)

// Constraint is a normalized comparison unit: operator plus expected
// value, attached to a document path by the residual that carries it.
type Constraint struct {
	Op    ast.Keyword
	Value any
}

// String returns the constraint as "[op value]".
func (c Constraint) String() string {
	return fmt.Sprintf("[%s %v]", c.Op, c.Value)
}

// Complex describes a non-simplifiable sub-result.
type Complex struct {
	// Type classifies the marker ("or", "not", "quantifier",
	// "unknown-operator", "unknown-namespace", "let", ...).
	Type string

	// Reason is a human-readable explanation.
	Reason string

	// Branches holds sub-residuals for disjunctions.
	Branches []Residual

	// Node is the sub-tree that produced the marker, if available.
	Node *ast.Node
}

// Term is one entry in a residual path's constraint sequence.
type Term struct {
	Kind       TermKind
	Constraint Constraint // Open and Conflict terms
	Witness    any        // Conflict terms only
	Complex    *Complex   // Complex terms only
}

// String renders the term in the tuple notation used by diagnostics.
func (t Term) String() string {
	switch t.Kind {
	case TermConflict:
		return fmt.Sprintf("[conflict %s %v]", t.Constraint, t.Witness)
	case TermComplex:
		if t.Complex != nil {
			return fmt.Sprintf("[complex %s]", t.Complex.Type)
		}
		return "[complex]"
	default:
		return t.Constraint.String()
	}
}

// Special residual keys. They are not document paths.
const (
	// CrossKeyKey collects constraints relating two document paths.
	CrossKeyKey = "::cross-key"

	// ComplexKey collects non-simplifiable sub-results.
	ComplexKey = "::complex"

	// ParamKey collects unbound-parameter entries, one sub-key per
	// parameter name.
	ParamKey = "::param"

	// AnyOp tags an open residual produced by a bare accessor miss,
	// where no constraint restricts the absent value.
	AnyOp ast.Keyword = "any"
)

// Residual is the partial-evaluation result of a policy against a
// document: a mapping from document path keys to constraint terms.
//
// The three logical states are distinguished by predicate, not by type:
// satisfied (empty), open (only TermOpen entries), conflict (at least
// one TermConflict entry).
type Residual map[string][]Term

// PathKey joins a document path into the map key used by Residual.
// Path segments never contain "." (the parser rejects such paths), so
// the mapping is invertible.
func PathKey(path []string) string {
	return strings.Join(path, ".")
}

// ParsePath splits a residual key back into its path segments. Special
// keys (prefixed "::") are returned as a single segment.
func ParsePath(key string) []string {
	if strings.HasPrefix(key, "::") {
		return []string{key}
	}
	return strings.Split(key, ".")
}

// Satisfied creates the satisfied residual.
func Satisfied() Residual {
	return Residual{}
}

// Open creates a residual with a single open constraint at path.
func Open(path []string, op ast.Keyword, value any) Residual {
	return Residual{PathKey(path): {{
		Kind:       TermOpen,
		Constraint: Constraint{Op: op, Value: value},
	}}}
}

// Miss creates the open residual for a bare accessor whose path is
// absent: the constraint is "any", nothing restricts the value yet.
func Miss(path []string) Residual {
	return Open(path, AnyOp, nil)
}

// Conflict creates a residual recording that the constraint at path was
// evaluated against witness and failed.
func Conflict(path []string, op ast.Keyword, value, witness any) Residual {
	return Residual{PathKey(path): {{
		Kind:       TermConflict,
		Constraint: Constraint{Op: op, Value: value},
		Witness:    witness,
	}}}
}

// FromComplex creates a residual holding a single complex marker under
// the ::complex key.
func FromComplex(c *Complex) Residual {
	return Residual{ComplexKey: {{Kind: TermComplex, Complex: c}}}
}

// CrossKey creates a residual holding a cross-key constraint term.
func CrossKey(term Term) Residual {
	return Residual{CrossKeyKey: {term}}
}

// UnboundParam creates a residual naming a parameter the caller must
// still supply.
func UnboundParam(name string) Residual {
	return Residual{ParamKey + "." + name: {{
		Kind:       TermOpen,
		Constraint: Constraint{Op: "required", Value: name},
	}}}
}

// IsSatisfied returns true if the residual carries no constraints.
func (r Residual) IsSatisfied() bool {
	return len(r) == 0
}

// HasConflicts returns true if any path carries a conflict term.
func (r Residual) HasConflicts() bool {
	for _, terms := range r {
		for _, t := range terms {
			if t.Kind == TermConflict {
				return true
			}
		}
	}
	return false
}

// AllConflicts returns true if the residual is non-empty and every term
// is a conflict. This is the precondition under which negation of the
// residual holds.
func (r Residual) AllConflicts() bool {
	if len(r) == 0 {
		return false
	}
	for _, terms := range r {
		for _, t := range terms {
			if t.Kind != TermConflict {
				return false
			}
		}
	}
	return true
}

// IsOpen returns true if the residual is non-empty and carries only
// plain open constraints (no conflicts, no complex markers).
func (r Residual) IsOpen() bool {
	if len(r) == 0 {
		return false
	}
	for _, terms := range r {
		for _, t := range terms {
			if t.Kind != TermOpen {
				return false
			}
		}
	}
	return true
}

// HasComplex returns true if any path carries a complex marker.
func (r Residual) HasComplex() bool {
	for _, terms := range r {
		for _, t := range terms {
			if t.Kind == TermComplex {
				return true
			}
		}
	}
	return false
}

// Paths returns the sorted residual keys, for deterministic reporting.
func (r Residual) Paths() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the residual sharing no map or slice
// structure with the original.
func (r Residual) Clone() Residual {
	out := make(Residual, len(r))
	for k, terms := range r {
		out[k] = append([]Term(nil), terms...)
	}
	return out
}

// String renders the residual for diagnostics, paths sorted.
func (r Residual) String() string {
	if r.IsSatisfied() {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{")
	for i, key := range r.Paths() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(key)
		sb.WriteString(": [")
		for j, t := range r[key] {
			if j > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(t.String())
		}
		sb.WriteString("]")
	}
	sb.WriteString("}")
	return sb.String()
}
