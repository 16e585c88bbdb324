package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for an unknown username and
	// for a wrong password alike, so callers cannot enumerate
	// usernames.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidResetToken covers missing, mismatched and expired
	// tokens uniformly.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrNotFound          = errors.New("principal not found")
)

// ValidationError reports malformed input with field-level detail.
// Safe to reveal to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateIdentityError signals a username or email collision across
// the union of both partitions, whether caught by the pre-check or by
// a partition unique index losing the insert race.
type DuplicateIdentityError struct {
	Field string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("%s already taken", e.Field)
}
