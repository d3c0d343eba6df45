// Package kerrs defines the error-kind taxonomy shared by every Kronoa
// component (spec §7). Errors are plain Go errors wrapped with
// fmt.Errorf("%w", ...) at the point they occur, the same idiom the
// storage and manager packages of the teacher repo use; this package
// only adds a Kind so callers can branch on error category without
// string-matching messages.
package kerrs

import (
	"errors"
	"fmt"
)

// Kind categorizes an error the way callers need to branch on it.
type Kind string

const (
	// input
	KindInvalidPath         Kind = "invalid-path"
	KindLabelInUse          Kind = "label-in-use"
	KindNotInEditingMode    Kind = "not-in-editing-mode"
	KindReadOnlyMode        Kind = "read-only-mode"
	KindAlreadyInTransction Kind = "already-in-transaction"
	KindNotInTransaction    Kind = "not-in-transaction"

	// lookup
	KindNotFound         Kind = "not-found"
	KindEditionNotFound  Kind = "edition-not-found"
	KindPendingNotFound  Kind = "pending-not-found"
	KindPendingCorrupt   Kind = "pending-corrupt"
	KindRejectedCorrupt  Kind = "rejected-corrupt"
	KindLabelNotFound    Kind = "label-not-found"

	// invariant
	KindIntegrityError Kind = "integrity-error"

	// concurrency
	KindConflictDetected       Kind = "conflict-detected"
	KindLockTimeout            Kind = "lock-timeout"
	KindLockExpired            Kind = "lock-expired"
	KindConcurrentModification Kind = "concurrent-modification"

	// transport
	KindStorageError Kind = "storage-error"
)

// Error is a Kronoa error carrying a Kind plus structured context.
// It wraps an underlying cause (if any) so errors.Is/As keep working.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Optional structured fields, populated depending on Kind.
	Path    string
	Edition int64
	Base    int64
	Current int64
	Source  string
	Key     string
	Expected string
	Actual   string
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/As/Unwrap.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Kind, which lets
// callers write errors.Is(err, kerrs.New(kerrs.KindNotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New constructs a bare *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NotFound builds a not-found error for a content path.
func NotFound(path string) *Error {
	return &Error{Kind: KindNotFound, Path: path, Message: fmt.Sprintf("%q not found", path)}
}

// EditionNotFound builds an edition-not-found error.
func EditionNotFound(edition int64) *Error {
	return &Error{Kind: KindEditionNotFound, Edition: edition, Message: fmt.Sprintf("edition %d not found", edition)}
}

// IntegrityError builds an integrity-error describing an
// expected/actual mismatch.
func IntegrityError(expected, actual string) *Error {
	return &Error{
		Kind:     KindIntegrityError,
		Expected: expected,
		Actual:   actual,
		Message:  fmt.Sprintf("integrity error: expected %s, got %s", expected, actual),
	}
}

// ConflictDetected builds a conflict-detected error for the publish
// pipeline's stage() base-pointer check.
func ConflictDetected(base, current int64, source string) *Error {
	return &Error{
		Kind:    KindConflictDetected,
		Base:    base,
		Current: current,
		Source:  source,
		Message: fmt.Sprintf("base %d does not match current %s pointer %d", base, source, current),
	}
}

// ConcurrentModification builds a concurrent-modification error for a
// specific backend key, signalling the caller may retry.
func ConcurrentModification(key string) *Error {
	return &Error{Kind: KindConcurrentModification, Key: key, Message: fmt.Sprintf("concurrent modification of %q", key)}
}

// Of reports the Kind of err, or "" if err is not a *Error.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether err is an optimistically retryable failure
// per spec §7 (concurrent-modification, lock-expired mid-op), as
// opposed to a definitive failure (conflict-detected, pending-corrupt).
func Retryable(err error) bool {
	switch Of(err) {
	case KindConcurrentModification, KindLockExpired:
		return true
	default:
		return false
	}
}
