// Package springqlerr defines the error taxonomy shared by every layer of
// the autonomous executor (spec.md §7). Errors carry a Kind so callers can
// branch with errors.As without string matching, while still composing with
// %w the way the rest of the module wraps errors.
package springqlerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for routing/log-level decisions.
type Kind int

const (
	// Sql: syntactic or semantic SQL error, type mismatch.
	Sql Kind = iota
	// InvalidOption: unrecognized key or value in OPTIONS.
	InvalidOption
	// InvalidFormat: malformed row (e.g. non-object JSON, schema mismatch).
	InvalidFormat
	// Unavailable: missing queue, out-of-range column, reconfig contention.
	Unavailable
	// ForeignIo: operational I/O error from a foreign reader/writer.
	ForeignIo
	// ForeignSourceTimeout: retryable timeout reading from a foreign source.
	ForeignSourceTimeout
	// InputTimeout: retryable timeout waiting for an input row.
	InputTimeout
	// ThreadPoisoned: a worker or coordinator observed a corrupt lock.
	ThreadPoisoned
)

func (k Kind) String() string {
	switch k {
	case Sql:
		return "Sql"
	case InvalidOption:
		return "InvalidOption"
	case InvalidFormat:
		return "InvalidFormat"
	case Unavailable:
		return "Unavailable"
	case ForeignIo:
		return "ForeignIo"
	case ForeignSourceTimeout:
		return "ForeignSourceTimeout"
	case InputTimeout:
		return "InputTimeout"
	case ThreadPoisoned:
		return "ThreadPoisoned"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a Kind-tagged error without an underlying cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an existing error with a Kind, preserving it via Unwrap.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether err is expected backpressure rather than a
// genuine fault, per the propagation policy in spec.md §7.
func Retryable(err error) bool {
	return Is(err, ForeignSourceTimeout) || Is(err, InputTimeout)
}
