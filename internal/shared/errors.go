package shared

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Every domain error wraps exactly one of them.
var (
	// ErrNotFound covers absent, soft-deleted and foreign-owned records alike.
	ErrNotFound = errors.New("NOT_FOUND")
	// ErrForbidden means the caller is not a verified seller.
	ErrForbidden = errors.New("FORBIDDEN")
	// ErrBadRequest means a transition precondition or input rule was not met.
	ErrBadRequest = errors.New("BAD_REQUEST")
	// ErrConflict means a uniqueness rule was violated.
	ErrConflict = errors.New("CONFLICT")
)

// Error is a classified failure whose message is shown to the user verbatim.
type Error struct {
	Kind    error
	Message string
}

// NewError builds a classified error. kind must be one of the Err* kinds above.
func NewError(kind error, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound builds a NOT_FOUND error.
func NotFound(format string, args ...any) *Error {
	return NewError(ErrNotFound, format, args...)
}

// BadRequest builds a BAD_REQUEST error.
func BadRequest(format string, args ...any) *Error {
	return NewError(ErrBadRequest, format, args...)
}

// Conflict builds a CONFLICT error.
func Conflict(format string, args ...any) *Error {
	return NewError(ErrConflict, format, args...)
}

// Forbidden builds a FORBIDDEN error.
func Forbidden(format string, args ...any) *Error {
	return NewError(ErrForbidden, format, args...)
}

// KindOf returns the kind wrapped by err, or nil for unclassified errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrForbidden, ErrBadRequest, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// UserMessage returns the caller-facing text of a classified error.
func UserMessage(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Message
	}
	if kind := KindOf(err); kind != nil {
		return err.Error()
	}
	return "Something went wrong, please try again"
}
