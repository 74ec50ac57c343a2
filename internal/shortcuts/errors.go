package shortcuts

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks payloads rejected before any storage write.
	ErrValidation = errors.New("shortcuts: validation failed")
	// ErrNotFound marks mutations targeting an id that does not exist in scope.
	ErrNotFound = errors.New("shortcuts: not found")
)

// NewValidationError wraps ErrValidation with the caller-facing message.
func NewValidationError(message string) error {
	return fmt.Errorf("%w: %s", ErrValidation, message)
}

// ServiceError carries a dotted operation code alongside the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code exposes the dotted operation code for logging and assertions.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}
