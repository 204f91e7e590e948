package oauth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const persistTimeout = 5 * time.Second

type session struct {
	did        string
	serviceURL string
	client     *http.Client
}

func (s *session) DID() string              { return s.did }
func (s *session) ServiceURL() string       { return s.serviceURL }
func (s *session) HTTPClient() *http.Client { return s.client }

func (c *PKCEClient) newSession(st *storedSession) *session {
	// The client outlives the request that restored it.
	base := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
	src := &persistingSource{c: c, st: *st}
	return &session{
		did:        st.DID,
		serviceURL: st.Server.ServiceURL,
		client:     oauth2.NewClient(base, src),
	}
}

// persistingSource refreshes through the client, so the store keeps exactly
// one current record per account however many sessions are open for it.
type persistingSource struct {
	c *PKCEClient

	mu sync.Mutex
	st storedSession
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.st.Token.Valid() {
		return p.st.Token, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout+refreshTimeout)
	defer cancel()

	fresh, err := p.c.refresh(ctx, &p.st)
	if err != nil {
		return nil, err
	}
	p.st = *fresh
	return p.st.Token, nil
}
