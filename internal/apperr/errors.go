// Package apperr defines the error taxonomy shared by the store and the HTTP
// layer.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, machine readable error class.
type Code string

const (
	CodeInternal     Code = "internal"
	CodeInvalid      Code = "invalid"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInvalidState Code = "invalid_state"
)

// Error carries a code, a human message and optional per-field detail.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithField attaches detail for a single input field.
func (e *Error) WithField(field, msg string) *Error {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
	return e
}

// New creates an error with the given code.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Invalid reports malformed input for a single field.
func Invalid(field, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return (&Error{Code: CodeInvalid, Message: msg}).WithField(field, msg)
}

// NotFound reports a missing entity, e.g. NotFound("sprint", 4).
func NotFound(entity string, id int64) *Error {
	return New(CodeNotFound, "%s %d not found", entity, id)
}

// Conflict reports an operation blocked by existing data.
func Conflict(format string, args ...any) *Error {
	return New(CodeConflict, format, args...)
}

// InvalidState reports a lifecycle transition attempted from the wrong state.
func InvalidState(format string, args ...any) *Error {
	return New(CodeInvalidState, format, args...)
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// FieldsOf returns the per-field detail of err, if any.
func FieldsOf(err error) map[string]string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}
