// Package decision defines the decision log: one record per policy
// evaluation, with pluggable storage backends, retention pruning and
// export.
package decision

import (
	"context"
	"time"
)

// Evaluation outcomes.
const (
	OutcomeSatisfied = "satisfied"
	OutcomeConflict  = "conflict"
	OutcomeOpen      = "open"
	OutcomeComplex   = "complex"
	OutcomeError     = "error"
)

// Record captures the outcome of one policy evaluation.
type Record struct {
	// ID is a UUID v4 assigned at recording time.
	ID string `json:"id"`

	// Time is when the evaluation ran.
	Time time.Time `json:"time"`

	// Policy is the evaluated policy, "namespace/name".
	Policy string `json:"policy"`

	// RegistryVersion is the module registry version in effect.
	RegistryVersion int `json:"registry_version"`

	// DocumentHash is the SHA-256 of the canonical document encoding.
	// The document itself is not stored.
	DocumentHash string `json:"document_hash"`

	// Outcome classifies the result: satisfied, conflict, open,
	// complex or error.
	Outcome string `json:"outcome"`

	// Residual is the printable residual, empty when satisfied.
	Residual string `json:"residual,omitempty"`

	// Paths are the residual's constraint keys.
	Paths []string `json:"paths,omitempty"`

	// Witnesses summarize conflicting document values.
	Witnesses []Witness `json:"witnesses,omitempty"`

	// Duration is the evaluation wall time.
	Duration time.Duration `json:"duration"`

	// Error holds the evaluation fault, if any.
	Error string `json:"error,omitempty"`
}

// Witness names a document value that contradicted a constraint.
type Witness struct {
	Path     string `json:"path"`
	Op       string `json:"op"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
}

// Query defines filter parameters for reading the decision log.
type Query struct {
	// Time range, inclusive on both ends.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Filters
	Policy  string `json:"policy,omitempty"`
	Outcome string `json:"outcome,omitempty"`

	// Pagination. Limit <= 0 means no limit.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder orders by time: "asc" or "desc" (default).
	SortOrder string `json:"sort_order,omitempty"`
}

// Store is a decision log backend. Implementations must be safe for
// concurrent use.
type Store interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves records matching the filters, newest first
	// unless the query says otherwise.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many went.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases backend resources.
	Close() error
}
