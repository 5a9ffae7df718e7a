package errors

import (
	"fmt"
)

// Error is the structured error type for Pensieve.
// It carries a stable code, a category matching the failure taxonomy,
// and a retryable flag so callers can distinguish transient external
// failures from fatal persistence failures.
type Error struct {
	// Code is the unique error code (e.g., "ERR_201_EMBEDDING_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Input, External, Persistence, Internal).
	Category Category

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with Error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new Error with the given code and message.
// Category and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// InputError creates an input-related error. No state was committed.
func InputError(message string) *Error {
	return New(ErrCodeInvalidInput, message, nil)
}

// ExternalError creates an external-capability error (embedding, vector search).
// External errors are retryable and must never mask partial results.
func ExternalError(message string, cause error) *Error {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// PersistenceError creates a persistence-related error.
// A failed persist after an in-memory mutation is fatal for that call.
func PersistenceError(message string, cause error) *Error {
	return New(ErrCodeRegistryWrite, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is an Error with the Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if pe, ok := err.(*Error); ok {
		return pe.Retryable
	}
	return false
}

// GetCode extracts the error code from an Error.
// Returns empty string if not an Error.
func GetCode(err error) string {
	if pe, ok := err.(*Error); ok {
		return pe.Code
	}
	return ""
}

// GetCategory extracts the error category.
// Returns CategoryInternal for plain errors.
func GetCategory(err error) Category {
	if pe, ok := err.(*Error); ok {
		return pe.Category
	}
	return CategoryInternal
}
