package core

import (
	"errors"
	"fmt"
)

// Error categories. Check with errors.Is.
var (
	// ErrValidation marks malformed input: unknown fields, incompatible filter
	// values, missing required fields.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an operation that targets a missing id.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrency marks a write whose target row was changed or removed
	// between read and write.
	ErrConcurrency = errors.New("concurrency conflict")

	// ErrStore marks an underlying persistence failure.
	ErrStore = errors.New("store failure")
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field name
	Value   string // The invalid value, if any
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid request: " + e.Message
}

// Is reports ErrValidation so callers can test the category.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps a driver error with ErrStore.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConcurrency) || errors.Is(err, ErrStore) || errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// ConcurrencyError reports a conflicting write on the given record.
func ConcurrencyError(table string, kind ChangeKind, id int64) error {
	return fmt.Errorf("%w: %s %s id=%d affected no rows", ErrConcurrency, kind, table, id)
}

// NotFoundError reports a missing record.
func NotFoundError(table string, id int64) error {
	return fmt.Errorf("%w: %s id=%d", ErrNotFound, table, id)
}

// IsNotFound reports whether err is an ErrNotFound error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConcurrency reports whether err is an ErrConcurrency error.
func IsConcurrency(err error) bool {
	return errors.Is(err, ErrConcurrency)
}
