// Package domainerrors carries the error taxonomy shared by services and the
// HTTP layer. Services return *Error values; handlers switch on Code to pick a
// response (re-render, flash + redirect, or an error page).
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeInvalidInput marks malformed or missing form input.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks a request the transport could not interpret.
	CodeBadRequest Code = "bad_request"
	// CodeConflict marks a uniqueness violation (duplicate username or email).
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks bad credentials or a missing/expired session.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an acting user that does not own the resource.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks an unknown user or post.
	CodeNotFound Code = "not_found"
	// CodeTimeout marks a cancelled or expired context.
	CodeTimeout Code = "timeout"
	// CodeInternal is everything else.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a domain error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost user-facing message, or a generic one.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return "internal error"
}
