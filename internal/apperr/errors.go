// Package apperr classifies failures into the small set of kinds the HTTP
// and socket layers know how to render.
package apperr

import (
	"errors"
	"fmt"
)

// Kind buckets an error for transport mapping. The string value doubles as
// the client-visible error code.
type Kind string

const (
	Validation   Kind = "validation"
	NotFound     Kind = "not-found"
	Unauthorized Kind = "unauthorized"
	Forbidden    Kind = "forbidden"
	Conflict     Kind = "conflict"
	Capacity     Kind = "capacity"
	RateLimited  Kind = "rate-limited"
	State        Kind = "state"
	Internal     Kind = "internal"
)

// Error is a kind-tagged error. Message is safe to show to clients; the
// wrapped cause is for logs only.
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

// New builds a kind-tagged error with a printf-style message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error without exposing it to clients.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf walks the wrap chain and returns the first tagged kind. Untagged
// errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the client-safe message for err. Untagged errors get a
// generic message so internals never leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// IsKind reports whether err resolves to the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
