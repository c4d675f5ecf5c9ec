package module

import (
	"fmt"
	"strings"
)

// LoadErrorCode categorizes module load failures.
type LoadErrorCode string

const (
	// ErrInvalidModule reports a module definition with a bad shape.
	ErrInvalidModule LoadErrorCode = "invalid-module"

	// ErrInvalidPolicy reports a policy definition that failed to
	// normalize or parse.
	ErrInvalidPolicy LoadErrorCode = "invalid-policy"

	// ErrReservedNamespace reports an attempt to register a module or
	// alias under a reserved namespace.
	ErrReservedNamespace LoadErrorCode = "reserved-namespace"

	// ErrDuplicateNamespace reports two definitions claiming the same
	// namespace in one load.
	ErrDuplicateNamespace LoadErrorCode = "duplicate-namespace"

	// ErrCircularImport reports an import cycle; Cycle names the
	// offending node sequence.
	ErrCircularImport LoadErrorCode = "circular-import"

	// ErrMissingImport reports an import that is neither in the load
	// set nor already registered.
	ErrMissingImport LoadErrorCode = "missing-import"
)

// LoadError is a structured module load failure. Loads are atomic: a
// LoadError means the supplied registry was not mutated at all.
type LoadError struct {
	Code      LoadErrorCode
	Namespace string
	Policy    string
	Message   string
	Cycle     []string
	Err       error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s]", e.Code))
	if e.Namespace != "" {
		sb.WriteString(fmt.Sprintf(" namespace %q", e.Namespace))
	}
	if e.Policy != "" {
		sb.WriteString(fmt.Sprintf(" policy %q", e.Policy))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if len(e.Cycle) > 0 {
		sb.WriteString(" (cycle: ")
		sb.WriteString(strings.Join(e.Cycle, " -> "))
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes the wrapped cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}
