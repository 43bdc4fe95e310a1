// Package errors carries the typed error codes shared by services and the
// HTTP layer. Services return *Error; handlers map the code to a status.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
	CodeRateLimit    Code = "RATE_LIMITED"
	// CodeTransactionAborted marks a write that was rolled back part way through.
	CodeTransactionAborted Code = "TRANSACTION_ABORTED"
)

// Metadata describes how a code is rendered to clients.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func meta(status int, public string, retryable, details bool) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retryable, PublicMessage: public, DetailsAllowed: details}
}

var registry = map[Code]Metadata{
	CodeValidation:         meta(http.StatusBadRequest, "validation failed", false, true),
	CodeUnauthorized:       meta(http.StatusUnauthorized, "authentication required", false, false),
	CodeForbidden:          meta(http.StatusForbidden, "access denied", false, false),
	CodeNotFound:           meta(http.StatusNotFound, "resource not found", false, false),
	CodeConflict:           meta(http.StatusConflict, "conflict detected", false, false),
	CodeIdempotency:        meta(http.StatusConflict, "idempotency key reused", false, true),
	CodeInternal:           meta(http.StatusInternalServerError, "internal server error", true, false),
	CodeDependency:         meta(http.StatusServiceUnavailable, "dependency unavailable", true, true),
	CodeRateLimit:          meta(http.StatusTooManyRequests, "too many requests", true, true),
	CodeTransactionAborted: meta(http.StatusConflict, "transaction aborted, nothing was changed", true, false),
}

// MetadataFor falls back to the internal error entry for unknown codes.
func MetadataFor(code Code) Metadata {
	m, ok := registry[code]
	if !ok {
		return registry[CodeInternal]
	}
	return m
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return Wrap(code, nil, message)
}

// Wrap attaches a code and message to cause. A nil cause is allowed.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the typed code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	return As(err).Code()
}
