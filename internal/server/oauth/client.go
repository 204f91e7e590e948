// Package oauth is the authorization collaborator: it starts logins, completes
// callbacks and restores stored sessions.
package oauth

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Session is an authenticated account. HTTPClient signs requests with the
// session's current access token, refreshing it as needed.
type Session interface {
	DID() string
	ServiceURL() string
	HTTPClient() *http.Client
}

type Client interface {
	// Authorize returns the URL to send the browser to.
	Authorize(ctx context.Context, identifier string) (string, error)
	// Callback completes the flow from the redirect's query parameters.
	Callback(ctx context.Context, params url.Values) (Session, error)
	// Restore loads the stored session for did. Invalid sessions are
	// reported as *SessionError.
	Restore(ctx context.Context, did string) (Session, error)
}

// AuthServer describes where an account authenticates and where its data lives.
type AuthServer struct {
	Issuer     string `json:"iss"`
	AuthURL    string `json:"auth_url"`
	TokenURL   string `json:"token_url"`
	ServiceURL string `json:"service_url"`
}

// Resolver maps a handle or DID to its authorization server.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (AuthServer, error)
}

// StateStore holds short-lived login state. Get returns common.ErrorNotFound
// for absent or expired keys.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
}

// SessionStore holds one session per DID. Get returns common.ErrorNotFound
// when nothing is stored.
type SessionStore interface {
	Get(ctx context.Context, did string) ([]byte, error)
	Set(ctx context.Context, did string, value []byte) error
	Delete(ctx context.Context, did string) error
}
