package model

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that transport layers can pick a status
// code without inspecting messages.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindInvalidInput
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// AppError is the error returned by the service layer.  Message is safe
// to show to users; Err keeps the underlying cause for logs and for
// diagnostic output outside production.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// NotFound builds a KindNotFound error.
func NotFound(msg string) *AppError { return &AppError{Kind: KindNotFound, Message: msg} }

// Conflict builds a KindConflict error.
func Conflict(msg string) *AppError { return &AppError{Kind: KindConflict, Message: msg} }

// Forbidden builds a KindForbidden error.
func Forbidden(msg string) *AppError { return &AppError{Kind: KindForbidden, Message: msg} }

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(msg string) *AppError { return &AppError{Kind: KindInvalidInput, Message: msg} }

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(msg string) *AppError { return &AppError{Kind: KindUnauthorized, Message: msg} }

// Internal wraps an unexpected collaborator failure.
func Internal(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for errors that did not
// originate from the service layer.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
