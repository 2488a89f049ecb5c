package gen

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes generator errors.
type ErrorKind string

const (
	// KindConfig indicates invalid generator configuration.
	KindConfig ErrorKind = "CONFIG"

	// KindNamespace indicates conflicting names in a Namespace.
	KindNamespace ErrorKind = "NAMESPACE"

	// KindClone indicates a clone was spawned without its parent in the mapping.
	KindClone ErrorKind = "CLONE"

	// KindLookup indicates a missing key or an impossible sample at Next.
	KindLookup ErrorKind = "LOOKUP"

	// KindAttribute indicates a missing record field at Next.
	KindAttribute ErrorKind = "ATTRIBUTE"

	// KindTimestamp indicates inconsistent timestamp bounds.
	KindTimestamp ErrorKind = "TIMESTAMP"

	// KindForeach indicates missing or unknown Foreach parameters.
	KindForeach ErrorKind = "FOREACH"
)

// Error is the error type returned by every operation in this package.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Op names the constructor or operation that failed.
	Op string

	// Message is a human-readable description.
	Message string

	// GeneratorID identifies the generator involved, if any.
	GeneratorID string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	if e.GeneratorID != "" {
		msg += fmt.Sprintf(" (generator=%s)", e.GeneratorID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func configError(op string, format string, args ...any) *Error {
	return newError(KindConfig, op, format, args...)
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}

// IsConfigError returns true if err is a configuration error.
func IsConfigError(err error) bool { return IsKind(err, KindConfig) }

// IsNamespaceError returns true if err is a namespace registration error.
func IsNamespaceError(err error) bool { return IsKind(err, KindNamespace) }

// IsCloneError returns true if err is a clone spawning error.
func IsCloneError(err error) bool { return IsKind(err, KindClone) }

// IsLookupError returns true if err is a runtime lookup error.
func IsLookupError(err error) bool { return IsKind(err, KindLookup) }

// IsAttributeError returns true if err is a runtime attribute error.
func IsAttributeError(err error) bool { return IsKind(err, KindAttribute) }

// IsTimestampError returns true if err is a timestamp bounds error.
func IsTimestampError(err error) bool { return IsKind(err, KindTimestamp) }

// IsForeachError returns true if err is a Foreach parameter error.
func IsForeachError(err error) bool { return IsKind(err, KindForeach) }
