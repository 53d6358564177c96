package models

import "fmt"

// ValidationError is raised on the client before any request is made,
// e.g. an empty required field or a password confirmation mismatch.
type ValidationError struct {
	Message string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthError wraps a rejection from the identity provider (bad
// credentials, unconfirmed account, bad code). Message is the provider's
// own text and is shown to the user as is.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Op + " failed"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TransportError is a network failure or a non-2xx backend response.
// StatusCode is 0 when no response was received.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
