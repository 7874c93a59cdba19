// Package apperr defines the error kinds returned by the core packages.
// Callers test kinds with errors.Is; controllers map them to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrValidation       = errors.New("validation failed")
	ErrPersistence      = errors.New("persistence failure")
	// ErrAlreadyDone marks an idempotent no-op. It is success with no effect.
	ErrAlreadyDone = errors.New("already done")
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
)

// Error pairs a kind with a message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

// Is matches the kind so errors.Is(err, ErrValidation) works on wrapped values.
func (e *Error) Is(target error) bool { return e.Kind == target }

func (e *Error) Unwrap() error { return e.Err }

// Validation reports invalid input.
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// AlreadyDone reports an idempotent no-op.
func AlreadyDone(format string, args ...interface{}) error {
	return &Error{Kind: ErrAlreadyDone, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing row.
func NotFound(what string) error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

// Forbidden reports an ownership violation.
func Forbidden(format string, args ...interface{}) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store failure. A nil cause yields nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrPersistence, Message: op, Err: err}
}

// Message returns the human readable part of err, without the cause chain for persistence failures.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == ErrPersistence && e.Message != "" {
			return e.Message + " failed"
		}
		return e.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
