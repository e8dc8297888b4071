// Package rterr provides a small typed-error taxonomy used across the
// runtime. It generalizes the teacher's sentinel-error style
// (see internal/agent.ErrNoRuns) into a kind-tagged wrapper that still
// composes with errors.Is/errors.As.
package rterr

import (
	"errors"
	"fmt"
)

// Kind categorizes the failure mode of an Error.
type Kind string

const (
	ValidationError Kind = "validation"
	NotFound        Kind = "not_found"
	Conflict        Kind = "conflict"
	External        Kind = "external"
	Internal        Kind = "internal"
	Timeout         Kind = "timeout"
	Unavailable     Kind = "unavailable"
)

// Error wraps an underlying error with a Kind and the operation that
// produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind for the named operation.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func NotFoundf(op, format string, args ...any) *Error {
	return New(NotFound, op, fmt.Errorf(format, args...))
}

func Validationf(op, format string, args ...any) *Error {
	return New(ValidationError, op, fmt.Errorf(format, args...))
}

func Conflictf(op, format string, args ...any) *Error {
	return New(Conflict, op, fmt.Errorf(format, args...))
}

func Internalf(op, format string, args ...any) *Error {
	return New(Internal, op, fmt.Errorf(format, args...))
}

func Timeoutf(op, format string, args ...any) *Error {
	return New(Timeout, op, fmt.Errorf(format, args...))
}

func Unavailablef(op, format string, args ...any) *Error {
	return New(Unavailable, op, fmt.Errorf(format, args...))
}

func Externalf(op, format string, args ...any) *Error {
	return New(External, op, fmt.Errorf(format, args...))
}
