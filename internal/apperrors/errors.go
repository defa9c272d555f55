package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced to a caller wraps exactly one of these.
var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound indicates that a subject or record does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden indicates that the target lies outside the caller's scope.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a state conflict such as a duplicate check-in.
	ErrConflict = errors.New("conflict")
	// ErrTransient indicates a persistence or infrastructure failure.
	ErrTransient = errors.New("transient store error")
)

// Error is a kind-tagged error with a human readable message.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

// New returns an error of the given kind.
func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap tags cause with a kind and message. A nil cause yields nil.
func Wrap(kind error, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Transient wraps a store failure.
func Transient(cause error, msg string) error {
	return Wrap(ErrTransient, cause, msg)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the kind sentinel of e.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Kind names the taxonomy member of err, "internal" when untagged.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "authorization"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "internal"
	}
}

// Message returns the outermost human message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}
