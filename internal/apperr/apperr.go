// Package apperr defines the client-facing error taxonomy shared by the core services.
// Anything that is not an *Error is an internal failure.
package apperr

import (
	"errors"
	"fmt"

	"github.com/ukydev/fleet-maintenance/internal/db"
)

// Kind classifies a client-facing error.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidTransition
	KindPreconditionFailed
	KindConflict
	KindForbidden
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Error is a validation error raised by the core.
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

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return newf(KindInvalidTransition, format, args...)
}

func PreconditionFailed(format string, args ...interface{}) *Error {
	return newf(KindPreconditionFailed, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(KindForbidden, format, args...)
}

func Invalid(format string, args ...interface{}) *Error {
	return newf(KindInvalid, format, args...)
}

// Conflict wraps a storage-level conflict (duplicate key, stale version, aborted transaction).
func Conflict(err error, format string, args ...interface{}) *Error {
	e := newf(KindConflict, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromStore maps the storage sentinels onto client-facing kinds. what names the entity,
// e.g. "item 64f1...". Other errors stay internal and are wrapped with what.
func FromStore(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: what + " not found"}
	case errors.Is(err, db.ErrConflict):
		return &Error{Kind: KindConflict, Message: what + " was modified concurrently", Err: err}
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
