package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates malformed input (non-positive shape
	// parameters, unknown action values); never retried
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypePersistence indicates the state store was unreachable or a
	// write conflicted
	ErrorTypePersistence ErrorType = "PERSISTENCE"

	// ErrorTypeSamplingTimeout indicates the Gamma rejection loop exceeded
	// its retry cap
	ErrorTypeSamplingTimeout ErrorType = "SAMPLING_TIMEOUT"

	// ErrorTypeUninitialized indicates bandit state was missing for a
	// (user, context) pair; always self-healed by initialize-then-retry
	ErrorTypeUninitialized ErrorType = "UNINITIALIZED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypePersistence,
		Message: message,
		Err:     err,
	}
}

// NewSamplingTimeoutError creates a new sampling timeout error
func NewSamplingTimeoutError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeSamplingTimeout,
		Message: message,
	}
}

// NewUninitializedError creates a new uninitialized state error
func NewUninitializedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUninitialized,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}
