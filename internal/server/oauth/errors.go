package oauth

import (
	"errors"
	"fmt"
)

// Kind enumerates the ways a stored session can stop being usable.
type Kind int

const (
	KindTokenRefresh Kind = iota + 1
	KindTokenInvalid
	KindTokenRevoked
	KindAuthMethodUnsatisfiable
)

func (k Kind) String() string {
	switch k {
	case KindTokenRefresh:
		return "token_refresh"
	case KindTokenInvalid:
		return "token_invalid"
	case KindTokenRevoked:
		return "token_revoked"
	case KindAuthMethodUnsatisfiable:
		return "auth_method_unsatisfiable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SessionError reports that the session for DID is no longer valid and the
// user has to log in again. Any other error from Restore is an upstream or
// store failure.
type SessionError struct {
	Kind Kind
	DID  string
	Err  error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth session %s for %s: %v", e.Kind, e.DID, e.Err)
	}
	return fmt.Sprintf("oauth session %s for %s", e.Kind, e.DID)
}

func (e *SessionError) Unwrap() error { return e.Err }

// IsSessionInvalid reports whether err carries a SessionError, and its kind.
func IsSessionInvalid(err error) (Kind, bool) {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

var (
	// ErrResolution means the login identifier could not be resolved to an
	// authorization server.
	ErrResolution = errors.New("identifier resolution failed")

	// ErrAccessDenied is returned by Callback when the authorization server
	// reports an error instead of a code.
	ErrAccessDenied = errors.New("authorization denied")
)
