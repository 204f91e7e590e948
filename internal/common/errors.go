// Package common defines shared constants and sentinel errors used across
// the tumbsky server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	// ErrCorruptRecord marks a stored value that can no longer be decoded,
	// e.g. after the at-rest key was rotated.
	ErrCorruptRecord = errors.New("corrupt record")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrNotConfigured reports that a secret or URL required at serve time is absent.
	ErrNotConfigured = errors.New("not configured")

	// Malformed client input.
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrInvalidState  = errors.New("invalid authorization state")
)
