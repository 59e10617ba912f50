// Package apperr defines the errors returned to callers of the form services.
//
// Every error carries a machine-readable reason. None of them indicate a
// broken process; handlers turn them into 4xx responses.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Machine-readable reasons.
const (
	ReasonInvalidTokenFormat = "invalid_token_format"
	ReasonValidationFailed   = "validation_failed"
	ReasonNotFound           = "not_found"
	ReasonInvalidFieldIDs    = "invalid_field_ids"
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonInternal           = "internal"
)

// FormatError means a token is not 64 lowercase hex characters.
type FormatError struct{}

func (e *FormatError) Error() string  { return "invalid token format" }
func (e *FormatError) Reason() string { return ReasonInvalidTokenFormat }

// Violation is one broken validation rule.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every rule a payload broke.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

func (e *ValidationError) Reason() string { return ReasonValidationFailed }

// Messages returns the violation messages in order.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return msgs
}

// NotFoundError means a well-formed reference matched nothing.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string  { return e.Resource + " not found" }
func (e *NotFoundError) Reason() string { return ReasonNotFound }

// ForeignReferenceError lists submitted field ids that do not belong to the form.
type ForeignReferenceError struct {
	IDs []string
}

func (e *ForeignReferenceError) Error() string {
	return fmt.Sprintf("invalid field IDs provided: %s", strings.Join(e.IDs, ", "))
}

func (e *ForeignReferenceError) Reason() string { return ReasonInvalidFieldIDs }

// AuthError means credentials or a bearer token were rejected.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string {
	if e.Msg == "" {
		return "invalid credentials"
	}
	return e.Msg
}

func (e *AuthError) Reason() string { return ReasonInvalidCredentials }

// Reason returns the reason of the first typed error in err's chain,
// or ReasonInternal.
func Reason(err error) string {
	var r interface{ Reason() string }
	if errors.As(err, &r) {
		return r.Reason()
	}
	return ReasonInternal
}
