package auction

import (
	"errors"
	"fmt"
)

// Kind classifies an engine rejection so the API layer can map it to a
// transport status without parsing messages.
type Kind string

// Rejection kinds.
const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindDependency Kind = "dependency"
)

// Error is a typed rejection from the auction core. Message is safe to show
// to the caller; for conflict rejections it carries the specific reason
// (including the current price for too-low bids).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ErrKind returns the Kind of err, or KindDependency for untyped errors.
func ErrKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// ErrMessage returns the caller-facing message of err, or a generic one for
// untyped errors.
func ErrMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Server error."
}

func validationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func notFoundError(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func conflictError(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

func dependencyError(message string, err error) error {
	return &Error{Kind: KindDependency, Message: message, Err: err}
}
