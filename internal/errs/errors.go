// Package errs provides the unified error type used across edaprompt.
//
// Subsystems (table loading, session storage, completion runtimes, object
// storage) wrap their native errors into *errs.Error before returning them.
// Callers branch on the Is* predicates instead of importing backend packages.
//
// Usage:
//
//	return errs.Wrap(errs.ErrKindParseFailure, "read row 12", err)
//
//	if errs.IsNotFound(err) {
//	    http.Error(w, "session not found", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
type ErrKind int

const (
	ErrKindUnknown           ErrKind = iota
	ErrKindMissingCredential         // no API key available for the completion service
	ErrKindParseFailure              // malformed uploaded table
	ErrKindDuplicateName             // session name already taken
	ErrKindNotFound                  // session, dataset, column or object absent
	ErrKindCompletionService         // network or API failure from the completion service
	ErrKindInvalidInput              // bad arguments from the caller
	ErrKindStorage                   // session or object store I/O failure
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindMissingCredential:
		return "missing_credential"
	case ErrKindParseFailure:
		return "parse_failure"
	case ErrKindDuplicateName:
		return "duplicate_name"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindCompletionService:
		return "completion_service"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by edaprompt subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsMissingCredential reports whether err means no API key could be obtained.
func IsMissingCredential(err error) bool {
	return KindOf(err) == ErrKindMissingCredential
}

// IsParseFailure reports whether err was caused by a malformed input table.
func IsParseFailure(err error) bool {
	return KindOf(err) == ErrKindParseFailure
}

// IsDuplicateName reports whether err is a session name collision.
func IsDuplicateName(err error) bool {
	return KindOf(err) == ErrKindDuplicateName
}

// IsNotFound reports whether err represents a missing session, dataset,
// column or object.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsCompletionService reports whether err came from the completion service.
func IsCompletionService(err error) bool {
	return KindOf(err) == ErrKindCompletionService
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsStorage reports whether err is a store I/O failure.
func IsStorage(err error) bool {
	return KindOf(err) == ErrKindStorage
}

// KindOf extracts the ErrKind from the first *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
