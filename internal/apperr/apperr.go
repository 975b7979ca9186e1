// Package apperr provides the error taxonomy shared by the store, the mutation
// handlers and the transports.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation   Code = "VALIDATION"
	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL"
)

// MessageKey is the string key used to look up the user-facing message.
func (c Code) MessageKey() string {
	switch c {
	case CodeValidation:
		return "error.validation"
	case CodeNotFound:
		return "error.notfound"
	case CodeUnauthorized:
		return "error.unauthorized"
	default:
		return "error.internal"
	}
}

// HTTPStatus maps a code to the status the web transport answers with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code
	Message  string            // internal message, for logs
	Metadata map[string]string // field, kind, id, capability
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrValidation   = &Error{Code: CodeValidation}
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrUnauthorized = &Error{Code: CodeUnauthorized}
)

func Validation(field, msg string) *Error {
	return &Error{
		Code:     CodeValidation,
		Message:  fmt.Sprintf("invalid %s: %s", field, msg),
		Metadata: map[string]string{"field": field},
	}
}

func NotFound(kind, id string) *Error {
	return &Error{
		Code:     CodeNotFound,
		Message:  fmt.Sprintf("%s not found: %s", kind, id),
		Metadata: map[string]string{"kind": kind, "id": id},
	}
}

func Unauthorized(capability string) *Error {
	return &Error{
		Code:     CodeUnauthorized,
		Message:  "missing capability " + capability,
		Metadata: map[string]string{"capability": capability},
	}
}

func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
