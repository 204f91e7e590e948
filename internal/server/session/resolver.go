// Package session turns the signed session cookie into an authenticated
// account for the duration of one request.
package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/logging"
	"github.com/tumbsky/tumbsky/internal/server/auth"
	"github.com/tumbsky/tumbsky/internal/server/oauth"
)

// Auth is the authenticated account of a request.
type Auth struct {
	DID     string
	Session oauth.Session
}

type memoKey struct{}

type memo struct {
	mu   sync.Mutex
	auth *Auth
}

// WithMemo returns a context that caches one successful resolution.
func WithMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoKey{}, &memo{})
}

// Middleware gives every request its own resolution cache.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithMemo(r.Context())))
	})
}

type Resolver struct {
	cookies *auth.Cookies
	client  oauth.Client
	log     logging.Logger
}

// NewResolver builds a resolver. client may be nil when OAuth is disabled;
// requests with a valid cookie then fail with common.ErrNotConfigured.
func NewResolver(cookies *auth.Cookies, client oauth.Client, log logging.Logger) *Resolver {
	return &Resolver{cookies: cookies, client: client, log: log.With("module", "session")}
}

// Require returns the request's account or an error wrapping
// common.ErrorUnauthorized. The cookie is cleared when its value is not a DID
// or when the authorization layer reports the session as invalid. Other
// Restore errors are returned unchanged.
func (s *Resolver) Require(w http.ResponseWriter, r *http.Request) (*Auth, error) {
	ctx := r.Context()
	m, _ := ctx.Value(memoKey{}).(*memo)
	if m != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.auth != nil {
			return m.auth, nil
		}
	}

	did, ok := s.cookies.Read(r)
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	if !auth.IsValidDID(did) {
		s.log.Debug(ctx, "session cookie holds a malformed did")
		s.cookies.Clear(w)
		return nil, common.ErrorUnauthorized
	}

	if s.client == nil {
		return nil, common.ErrNotConfigured
	}

	sess, err := s.client.Restore(ctx, did)
	if err != nil {
		if kind, invalid := oauth.IsSessionInvalid(err); invalid {
			s.log.Info(ctx, "oauth session no longer valid", "did", did, "kind", kind.String())
			s.cookies.Clear(w)
			return nil, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
		}
		return nil, err
	}

	a := &Auth{DID: did, Session: sess}
	if m != nil {
		m.auth = a
	}
	return a, nil
}
