package archive

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no record has the requested ID.
var ErrNotFound = errors.New("archive record not found")

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // "sqlite", "sqlite3" or "memory"
	Operation string // "open", "store", "list", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("archive storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RetentionError reports a failed pruning pass.
type RetentionError struct {
	RetentionDays int
	MaxRecords    int64
	Cause         error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention pruning failed (retention_days=%d, max_records=%d): %v",
		e.RetentionDays, e.MaxRecords, e.Cause)
}

func (e *RetentionError) Unwrap() error {
	return e.Cause
}
