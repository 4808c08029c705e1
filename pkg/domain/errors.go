package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a user has no stored session.
var ErrSessionNotFound = errors.New("session not found")

// ErrVersionConflict is returned by a store when the session changed since it was read.
var ErrVersionConflict = errors.New("session version conflict")

// ErrUnknownPayload is returned when no option matches a selection payload.
var ErrUnknownPayload = errors.New("unknown selection payload")

// ErrInputTypeMismatch is returned when a response cannot be coerced to the expected input type.
var ErrInputTypeMismatch = errors.New("input type mismatch")

// CorruptedSessionError reports a stored session that cannot be interpreted
// against the current graph. It is never repaired automatically.
type CorruptedSessionError struct {
	UserID string
	Reason string
}

func (e *CorruptedSessionError) Error() string {
	return fmt.Sprintf("corrupted session for user %q: %s", e.UserID, e.Reason)
}

// IsCorrupted reports whether err is (or wraps) a CorruptedSessionError.
func IsCorrupted(err error) bool {
	var target *CorruptedSessionError
	return errors.As(err, &target)
}
