package ledger

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers branch on Kind rather than matching error strings; Error()
// strings are human-readable and may evolve.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindInvalidAmount       Kind = "INVALID_AMOUNT"
	KindInvalidExpiration   Kind = "INVALID_EXPIRATION"
	KindExpired             Kind = "EXPIRED"
	KindAlreadyVerified     Kind = "ALREADY_VERIFIED"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindProjectNotVerified  Kind = "PROJECT_NOT_VERIFIED"
)

// Error is the ledger's structured error type. Every failed operation
// returns one carrying the kind plus the offending entity and id, so
// callers and transports can branch without string matching.
type Error struct {
	Kind    Kind
	Entity  string
	ID      string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Message)
	}
	return e.Message
}

// Is reports kind equality so sentinel comparisons like
// errors.Is(err, &Error{Kind: KindNotFound}) work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds a structured ledger error.
func NewError(kind Kind, entity, id, message string) *Error {
	return &Error{Kind: kind, Entity: entity, ID: id, Message: message}
}

// ErrKind extracts the Kind from err, or "" when err is not a ledger error.
func ErrKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a ledger error of the given kind.
func IsKind(err error, kind Kind) bool {
	return ErrKind(err) == kind
}
