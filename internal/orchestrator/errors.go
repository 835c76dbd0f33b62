package orchestrator

import "errors"

// Kind is the Orchestrator's error taxonomy (spec.md §7).
type Kind int

const (
	KindUsage Kind = iota
	KindNotFound
	KindConflict
	KindInvariant
	KindExternalTransient
	KindExternalFatal
	KindIO
)

// Error is the typed error every Orchestrator operation returns on
// failure, carrying the failing step's name for diagnostics.
type Error struct {
	Kind    Kind
	Step    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Step + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Step + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, step, message string, cause error) *Error {
	return &Error{Kind: kind, Step: step, Message: message, Cause: cause}
}

func hasKind(err error, k Kind) bool {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind == k
	}
	return false
}

// IsUsage reports whether err is a usage error.
func IsUsage(err error) bool { return hasKind(err, KindUsage) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return hasKind(err, KindConflict) }

// IsExternalFatal reports whether err triggered a compensation unwind.
func IsExternalFatal(err error) bool { return hasKind(err, KindExternalFatal) }

// IsInvariant reports whether err is an invariant-violation error.
func IsInvariant(err error) bool { return hasKind(err, KindInvariant) }
