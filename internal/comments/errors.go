package comments

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindNotFound         Kind = "NOT_FOUND"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindIllegalPinTarget Kind = "ILLEGAL_PIN_TARGET"
	KindStoreFailure     Kind = "STORE_FAILURE"
)

// ErrSignedOut is wrapped by Unauthorized errors raised for a nil actor.
var ErrSignedOut = errors.New("no signed-in actor")

// Error is the failure returned by every engine operation. Kind classifies
// it for callers; Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the operation unchanged.
func (e *Error) Retryable() bool {
	return e != nil && e.Kind == KindStoreFailure
}

// KindOf returns the Kind carried by err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var commentErr *Error
	if errors.As(err, &commentErr) {
		return commentErr.Kind
	}
	return ""
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func storeFailure(message string, err error) *Error {
	return &Error{Kind: KindStoreFailure, Message: message, Err: err}
}
