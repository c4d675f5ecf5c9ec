package ast

import "fmt"

// Position records the token-index range [Start, End) a node was parsed
// from within the source expression. It enables precise diagnostics
// without retaining the source vectors themselves.
//
// Invariant: a node's position range contains the positions of all of
// its descendants.
type Position struct {
	Start int // First token index (0-based)
	End   int // One past the last token index
}

// Contains returns true if the range of other falls entirely within p.
func (p Position) Contains(other Position) bool {
	return p.Start <= other.Start && other.End <= p.End
}

// IsValid returns true if the position describes a non-empty range.
func (p Position) IsValid() bool {
	return p.End > p.Start
}

// String returns a human-readable representation, e.g. "tokens 3..7".
func (p Position) String() string {
	return fmt.Sprintf("tokens %d..%d", p.Start, p.End)
}
