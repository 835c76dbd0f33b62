package store

import "errors"

// Kind is the Store's error taxonomy (spec.md §4.A / §7).
type Kind int

const (
	KindConflict Kind = iota
	KindNotFound
	KindInvariant
	KindIO
)

// Error is the typed error every Store method returns on failure.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Op + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// IsConflict reports whether err is a Store conflict error.
func IsConflict(err error) bool { return hasKind(err, KindConflict) }

// IsNotFound reports whether err is a Store not-found error.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsInvariant reports whether err is a Store invariant-violation error.
func IsInvariant(err error) bool { return hasKind(err, KindInvariant) }

func hasKind(err error, k Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == k
	}
	return false
}
