package decision

import "fmt"

// StorageError wraps a backend failure with the backend name and the
// operation that failed.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("decision storage %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError creates a StorageError.
func NewStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Err: err}
}

// ExportError wraps an export failure with the format and the number
// of records written before the failure.
type ExportError struct {
	Format  string
	Records int
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("decision export %s after %d record(s): %v", e.Format, e.Records, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// NewExportError creates an ExportError.
func NewExportError(format string, records int, err error) *ExportError {
	return &ExportError{Format: format, Records: records, Err: err}
}
