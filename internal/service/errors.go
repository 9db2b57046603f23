package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// Sentinel errors returned by the services. Callers check them with errors.Is.
//
// Error handling principles:
// 1. Expected conditions are reported with one of these sentinels
// 2. Unexpected errors are wrapped in a *ServiceError naming the operation
// 3. The API layer maps the sentinels to HTTP status codes
var (
	// ErrNotFound indicates the requested user or task does not exist.
	// Store errors such as store.ErrTaskNotFound match it as well.
	// API layer should map this to HTTP 404 Not Found.
	ErrNotFound = store.ErrNotFound

	// ErrPermissionDenied indicates the actor is not allowed to perform the operation.
	// API layer should map this to HTTP 403 Forbidden.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrDuplicateEmail indicates the email already belongs to another user.
	// API layer should map this to HTTP 409 Conflict.
	ErrDuplicateEmail = store.ErrEmailExists

	// ErrValidation indicates invalid input. The concrete error is a
	// *domain.ValidationError naming the field.
	// API layer should map this to HTTP 400 Bad Request.
	ErrValidation = domain.ErrValidation

	// ErrInvalidCredentials is returned by Authenticate for an unknown email and
	// for a wrong password alike.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ServiceError wraps an error with the operation that produced it.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// wrap returns err unchanged when it is one of the expected sentinels, and
// a ServiceError for operation otherwise.
func wrap(operation, message string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidCredentials):
		return err
	default:
		return NewServiceError(operation, message, err)
	}
}
