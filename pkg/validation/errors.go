package validation

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a calculation failure.
type Kind int

const (
	// KindInvalidInput marks a non-positive principal, rate, term or duration.
	KindInvalidInput Kind = iota + 1
	// KindOutOfRange marks a query horizon beyond the term or sequence length.
	KindOutOfRange
	// KindNoRootFound marks an effective rate that cannot be bracketed.
	KindNoRootFound
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindOutOfRange:
		return "out of range"
	case KindNoRootFound:
		return "no root found"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinel errors matched with errors.Is against any *Error of the same kind.
var (
	ErrInvalidInput = errors.New(KindInvalidInput.String())
	ErrOutOfRange   = errors.New(KindOutOfRange.String())
	ErrNoRootFound  = errors.New(KindNoRootFound.String())
)

// Error carries the kind of failure together with the offending field and value.
type Error struct {
	Kind  Kind
	Op    string
	Field string
	Value float64
	Msg   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s=%g", e.Field, e.Value)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

// Unwrap exposes the sentinel for the error's kind.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindOutOfRange:
		return ErrOutOfRange
	case KindNoRootFound:
		return ErrNoRootFound
	}
	return nil
}

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(op, field string, value float64, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Field: field, Value: value, Msg: msg}
}

// OutOfRange builds a KindOutOfRange error.
func OutOfRange(op, field string, value float64, msg string) *Error {
	return &Error{Kind: KindOutOfRange, Op: op, Field: field, Value: value, Msg: msg}
}

// NoRootFound builds a KindNoRootFound error.
func NoRootFound(op, msg string) *Error {
	return &Error{Kind: KindNoRootFound, Op: op, Msg: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var calcErr *Error
	if errors.As(err, &calcErr) {
		return calcErr.Kind
	}
	return 0
}
