package signature

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken is a missing or malformed Authorization header.
	ErrMissingToken = errors.New("missing or malformed bearer token")
	// ErrTokenMismatch is a well-formed bearer token that is not the secret.
	ErrTokenMismatch = errors.New("invalid bearer token")
)

// ValidationError is a payload that fails identifier or configuration checks.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(format string, args ...interface{}) ValidationError {
	return ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// VerificationError represents a signature or timestamp failure
type VerificationError struct {
	Message string
	Header  string
}

func (e VerificationError) Error() string {
	if e.Header != "" {
		return fmt.Sprintf("signature verification failed for header %s: %s", e.Header, e.Message)
	}
	return fmt.Sprintf("signature verification failed: %s", e.Message)
}

// NewVerificationError creates a new verification error
func NewVerificationError(header, format string, args ...interface{}) VerificationError {
	return VerificationError{
		Header:  header,
		Message: fmt.Sprintf(format, args...),
	}
}
