package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the platform client, or the method being called, is not present.
	// Typically a startup race: the runtime has not been attached yet.
	ErrUnavailable = errors.New("platform: unavailable")

	// ErrCallFailed matches every *CallError.
	ErrCallFailed = errors.New("platform: call failed")
)

// CallError is a platform call that was rejected or answered with success=false.
type CallError struct {
	Method  string
	Message string
	Err     error
}

func (e *CallError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "unsuccessful response"
	}
	return fmt.Sprintf("platform %s: %s", e.Method, msg)
}

func (e *CallError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCallFailed) match any CallError.
func (e *CallError) Is(target error) bool { return target == ErrCallFailed }

// Failed builds a CallError for a success=false response.
func Failed(method, message string) error {
	return &CallError{Method: method, Message: message}
}

// ValidationError is rejected user input, handled before reaching the platform.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
