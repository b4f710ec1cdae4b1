package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreFailure marks any failure of the underlying storage. Callers
	// treat it as "nothing was written".
	ErrStoreFailure = errors.New("store failure")

	// ErrDuplicateBudget is returned when a budget already exists for the
	// same category and month.
	ErrDuplicateBudget = errors.New("budget already exists for this category and month")

	// ErrDuplicateCategory is returned when a category name is taken.
	ErrDuplicateCategory = errors.New("category already exists")

	// ErrConcurrentModification is returned when a template was advanced by
	// someone else between read and write. Safe to retry after re-reading.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")
)

// StoreError wraps a backend error with the operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreFailure, e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreFailure, e.Err}
}

// Fail wraps err as a StoreError for op. A nil err stays nil.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsConflict returns true for uniqueness violations.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateBudget) || errors.Is(err, ErrDuplicateCategory)
}
