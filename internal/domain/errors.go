package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("Validation failed")
	ErrNotAuthorized     = errors.New("Not authorized to perform this action")
	ErrNotFound          = errors.New("Not found")
	ErrInvalidTransition = errors.New("Invalid verification transition")
)

// FieldError is a validation failure attached to one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// Invalid returns a *FieldError for field.
func Invalid(field, format string, args ...interface{}) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransitionError reports a verification edge the state machine does not allow.
type TransitionError struct {
	From VerificationStatus
	To   VerificationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move verification from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
