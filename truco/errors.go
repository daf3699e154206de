package truco

import "fmt"

// The four rejection kinds of the command surface. Each rejection is
// terminal for its command and leaves the mesa untouched: validation runs
// fully before any mutation.

// ValidationError reports malformed or out-of-range input.
type ValidationError string

func (e ValidationError) Error() string { return "validation: " + string(e) }

func errValidation(format string, args ...any) error {
	return ValidationError(fmt.Sprintf(format, args...))
}

// IllegalStateError reports a command that is not legal in the current
// phase or turn.
type IllegalStateError string

func (e IllegalStateError) Error() string { return "illegal state: " + string(e) }

func errIllegalState(format string, args ...any) error {
	return IllegalStateError(fmt.Sprintf(format, args...))
}

// AuthorizationError reports an actor that is not a legal player or
// responder for the action.
type AuthorizationError string

func (e AuthorizationError) Error() string { return "not allowed: " + string(e) }

func errAuthorization(format string, args ...any) error {
	return AuthorizationError(fmt.Sprintf(format, args...))
}

// ConflictError reports duplicate or already-settled actions. Conflicts
// are rejected idempotently, never fatal.
type ConflictError string

func (e ConflictError) Error() string { return "conflict: " + string(e) }

func errConflict(format string, args ...any) error {
	return ConflictError(fmt.Sprintf(format, args...))
}
