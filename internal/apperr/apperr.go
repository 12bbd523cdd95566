// Package apperr defines the typed failures returned by the household core.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error kind.
type Kind string

const (
	NotFound              Kind = "not_found"
	HouseholdNotFound     Kind = "household_not_found"
	Unauthorized          Kind = "unauthorized"
	DuplicateMember       Kind = "duplicate_member"
	InvalidZone           Kind = "invalid_zone"
	AllocationExhausted   Kind = "allocation_exhausted"
	Conflict              Kind = "conflict"
	LastAdminMustTransfer Kind = "last_admin_must_transfer"
	ValidationError       Kind = "validation_error"
	Internal              Kind = "internal"
)

// Error is a typed failure carrying a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: Conflict})
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf reports the kind of err. Untyped errors are Internal; nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether a caller may safely retry a failure of this kind.
func Retryable(kind Kind) bool {
	return kind == Conflict || kind == AllocationExhausted
}
