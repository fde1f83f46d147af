// Package apperror holds the error taxonomy shared by the ledger core and
// its callers. Every recoverable condition is returned as a typed *Error so
// the presentation layer can render it without string matching.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindNotFound                 Kind = "not_found"
	KindValidation               Kind = "validation"
	KindInvalidTransition        Kind = "invalid_transition"
	KindGuardFailed              Kind = "guard_failed"
	KindInsufficientStock        Kind = "insufficient_stock"
	KindAlreadyCancelled         Kind = "already_cancelled"
	KindLedgerInvariantViolation Kind = "ledger_invariant_violation"
	KindConcurrencyConflict      Kind = "concurrency_conflict"
	KindConflict                 Kind = "conflict"
	KindStorage                  Kind = "storage"
)

// Error is the concrete error returned by services and repositories.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "sale.create"
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind lets KindOf classify *Error without a type switch.
func (e *Error) ErrorKind() Kind { return e.Kind }

type kinded interface {
	ErrorKind() Kind
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors report KindStorage.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindStorage
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var k kinded
	return errors.As(err, &k) && k.ErrorKind() == kind
}

// IsDomain reports whether err was produced by the ledger core itself,
// as opposed to a driver or runtime failure.
func IsDomain(err error) bool {
	var k kinded
	return errors.As(err, &k)
}

// IsFatal reports errors that indicate a bug or an infrastructure failure
// rather than a user mistake.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindLedgerInvariantViolation, KindStorage:
		return true
	}
	return false
}

// IsRetryable reports errors the caller may retry once with fresh data.
func IsRetryable(err error) bool {
	return Is(err, KindConcurrencyConflict)
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return newf(KindNotFound, op, format, args...)
}

func Validation(op, format string, args ...any) *Error {
	return newf(KindValidation, op, format, args...)
}

func GuardFailed(op, format string, args ...any) *Error {
	return newf(KindGuardFailed, op, format, args...)
}

func InsufficientStock(op, format string, args ...any) *Error {
	return newf(KindInsufficientStock, op, format, args...)
}

func AlreadyCancelled(op, format string, args ...any) *Error {
	return newf(KindAlreadyCancelled, op, format, args...)
}

func InvariantViolation(op, format string, args ...any) *Error {
	return newf(KindLedgerInvariantViolation, op, format, args...)
}

func ConcurrencyConflict(op, format string, args ...any) *Error {
	return newf(KindConcurrencyConflict, op, format, args...)
}

func Conflict(op, format string, args ...any) *Error {
	return newf(KindConflict, op, format, args...)
}

// Storage wraps an unexpected infrastructure error. The message shown to
// end users never includes err.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Message: "storage failure", Err: err}
}
