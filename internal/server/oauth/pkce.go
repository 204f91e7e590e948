package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/logging"
	"github.com/tumbsky/tumbsky/internal/server/auth"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStateTTL = 10 * time.Minute
	refreshTimeout  = 15 * time.Second
)

// Options configures a PKCEClient.
type Options struct {
	Metadata Metadata
	Resolver Resolver
	States   StateStore
	Sessions SessionStore

	// StateTTL bounds how long a login may take. Defaults to DefaultStateTTL.
	StateTTL time.Duration
	// HTTPClient talks to token endpoints. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// ClientKey makes this a confidential client using private_key_jwt.
	// Metadata should come from Metadata.WithClientKey then.
	ClientKey *ClientKey
	Logger    logging.Logger
}

// PKCEClient runs the authorization-code flow with PKCE, as a public client
// or with private_key_jwt, and keeps each account's tokens in a SessionStore.
type PKCEClient struct {
	metadata   Metadata
	resolver   Resolver
	states     StateStore
	sessions   SessionStore
	stateTTL   time.Duration
	httpClient *http.Client
	key        *ClientKey
	log        logging.Logger
	now        func() time.Time

	refreshes singleflight.Group
}

var _ Client = (*PKCEClient)(nil)

func NewPKCEClient(opts Options) *PKCEClient {
	c := &PKCEClient{
		metadata:   opts.Metadata,
		resolver:   opts.Resolver,
		states:     opts.States,
		sessions:   opts.Sessions,
		stateTTL:   opts.StateTTL,
		httpClient: opts.HTTPClient,
		key:        opts.ClientKey,
		log:        opts.Logger,
		now:        time.Now,
	}
	if c.stateTTL <= 0 {
		c.stateTTL = DefaultStateTTL
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.log == nil {
		c.log = logging.Nop{}
	}
	return c
}

type flowState struct {
	Verifier   string     `json:"verifier"`
	Identifier string     `json:"identifier"`
	Server     AuthServer `json:"server"`
}

type storedSession struct {
	DID    string        `json:"did"`
	Server AuthServer    `json:"server"`
	Token  *oauth2.Token `json:"token"`
}

func (c *PKCEClient) config(srv AuthServer) *oauth2.Config {
	redirect := ""
	if len(c.metadata.RedirectURIs) > 0 {
		redirect = c.metadata.RedirectURIs[0]
	}
	return &oauth2.Config{
		ClientID:    c.metadata.ClientID,
		RedirectURL: redirect,
		Scopes:      strings.Fields(c.metadata.Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.AuthURL,
			TokenURL:  srv.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// clientCtx carries the HTTP client for calls to srv's token endpoint,
// authenticating with a client assertion when a key is configured.
func (c *PKCEClient) clientCtx(ctx context.Context, srv AuthServer) context.Context {
	hc := c.httpClient
	if c.key != nil {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		aud := srv.Issuer
		if aud == "" {
			aud = srv.TokenURL
		}
		cp := *hc
		cp.Transport = &assertionTransport{
			base:     base,
			key:      c.key,
			clientID: c.metadata.ClientID,
			tokenURL: srv.TokenURL,
			aud:      aud,
			now:      c.now,
		}
		hc = &cp
	}
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}

func (c *PKCEClient) Authorize(ctx context.Context, identifier string) (string, error) {
	srv, err := c.resolver.Resolve(ctx, identifier)
	if err != nil {
		return "", err
	}

	key, err := common.MakeRandToken(32)
	if err != nil {
		return "", err
	}
	fs := flowState{
		Verifier:   oauth2.GenerateVerifier(),
		Identifier: identifier,
		Server:     srv,
	}
	raw, err := json.Marshal(fs)
	if err != nil {
		return "", err
	}
	if err := c.states.Set(ctx, key, raw, c.now().Add(c.stateTTL)); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}

	return c.config(srv).AuthCodeURL(key,
		oauth2.S256ChallengeOption(fs.Verifier),
		oauth2.SetAuthURLParam("login_hint", identifier),
	), nil
}

// Callback consumes the login state exactly once, then exchanges the code.
func (c *PKCEClient) Callback(ctx context.Context, params url.Values) (Session, error) {
	if e := params.Get("error"); e != "" {
		return nil, fmt.Errorf("%w: %s %s", ErrAccessDenied, e, params.Get("error_description"))
	}

	key, code := params.Get("state"), params.Get("code")
	if key == "" || code == "" {
		return nil, fmt.Errorf("%w: missing state or code", common.ErrInvalidState)
	}

	raw, err := c.states.Get(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown or expired state", common.ErrInvalidState)
		}
		return nil, err
	}
	if err := c.states.Delete(ctx, key); err != nil {
		return nil, err
	}

	var fs flowState
	if err := json.Unmarshal(raw, &fs); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidState, err)
	}
	if iss := params.Get("iss"); iss != "" && fs.Server.Issuer != "" && iss != fs.Server.Issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", common.ErrInvalidState)
	}

	tok, err := c.config(fs.Server).Exchange(c.clientCtx(ctx, fs.Server), code, oauth2.VerifierOption(fs.Verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	sub, _ := tok.Extra("sub").(string)
	if !auth.IsValidDID(sub) {
		return nil, fmt.Errorf("token response: invalid sub %q", sub)
	}

	st := &storedSession{DID: sub, Server: fs.Server, Token: tok}
	if err := c.save(ctx, st); err != nil {
		return nil, err
	}
	return c.newSession(st), nil
}

// Restore loads the session for did, refreshing an expired access token.
// Sessions that cannot be used any more are deleted and reported as *SessionError.
func (c *PKCEClient) Restore(ctx context.Context, did string) (Session, error) {
	raw, err := c.sessions.Get(ctx, did)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, &SessionError{Kind: KindTokenInvalid, DID: did, Err: errors.New("no stored session")}
		}
		if errors.Is(err, common.ErrCorruptRecord) {
			return nil, c.invalidate(ctx, &SessionError{Kind: KindTokenInvalid, DID: did, Err: err})
		}
		return nil, err
	}

	var st storedSession
	if err := json.Unmarshal(raw, &st); err != nil || st.Token == nil || st.DID != did {
		return nil, c.invalidate(ctx, &SessionError{Kind: KindTokenInvalid, DID: did, Err: errors.New("corrupt stored session")})
	}

	if !st.Token.Valid() {
		if st.Token.RefreshToken == "" {
			return nil, c.invalidate(ctx, &SessionError{Kind: KindTokenInvalid, DID: did, Err: errors.New("expired without refresh token")})
		}
		fresh, err := c.refresh(ctx, &st)
		if err != nil {
			return nil, err
		}
		st = *fresh
	}

	return c.newSession(&st), nil
}

// refresh returns used with a usable access token. Refreshes of one account
// run one at a time, and each starts by re-reading the store: when another
// caller has already rotated the tokens, its result is returned rather than
// spending the old refresh token a second time.
func (c *PKCEClient) refresh(ctx context.Context, used *storedSession) (*storedSession, error) {
	v, err, _ := c.refreshes.Do(used.DID, func() (any, error) {
		// shared by every waiting caller, so one caller's cancellation must not fail the rest
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.refreshOnce(rctx, used)
	})
	if err != nil {
		return nil, err
	}
	st := *v.(*storedSession)
	return &st, nil
}

func (c *PKCEClient) refreshOnce(ctx context.Context, used *storedSession) (*storedSession, error) {
	if cur, ok := c.rotated(ctx, used); ok {
		if cur.Token.Valid() {
			return cur, nil
		}
		used = cur
	}

	fresh, err := c.config(used.Server).TokenSource(c.clientCtx(ctx, used.Server), used.Token).Token()
	if err != nil {
		kind, ok := classify(err)
		if !ok {
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		// the token may have been rotated by another process between our read and the rejection
		if cur, rotated := c.rotated(ctx, used); rotated && cur.Token.Valid() {
			return cur, nil
		}
		return nil, c.invalidate(ctx, &SessionError{Kind: kind, DID: used.DID, Err: err})
	}

	st := *used
	st.Token = fresh
	if err := c.save(ctx, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// rotated returns the stored session for used.DID when it no longer holds
// the tokens in used.
func (c *PKCEClient) rotated(ctx context.Context, used *storedSession) (*storedSession, bool) {
	raw, err := c.sessions.Get(ctx, used.DID)
	if err != nil {
		return nil, false
	}
	var cur storedSession
	if err := json.Unmarshal(raw, &cur); err != nil || cur.Token == nil || cur.DID != used.DID {
		return nil, false
	}
	if cur.Token.RefreshToken == used.Token.RefreshToken && cur.Token.AccessToken == used.Token.AccessToken {
		return nil, false
	}
	return &cur, true
}

func (c *PKCEClient) save(ctx context.Context, st *storedSession) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := c.sessions.Set(ctx, st.DID, raw); err != nil {
		return fmt.Errorf("save oauth session: %w", err)
	}
	return nil
}

func (c *PKCEClient) invalidate(ctx context.Context, se *SessionError) error {
	if err := c.sessions.Delete(ctx, se.DID); err != nil {
		c.log.Warn(ctx, "failed to delete invalid oauth session", "did", se.DID, "error", err)
	}
	c.log.Info(ctx, "oauth session invalidated", "did", se.DID, "kind", se.Kind.String())
	return se
}

// classify maps token endpoint rejections to session-invalid kinds.
// Transport errors and 5xx answers are upstream failures, not invalid sessions.
func classify(err error) (Kind, bool) {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return 0, false
	}
	switch re.ErrorCode {
	case "invalid_client", "unauthorized_client", "invalid_dpop_proof", "use_dpop_nonce":
		return KindAuthMethodUnsatisfiable, true
	case "access_denied":
		return KindTokenRevoked, true
	case "invalid_grant":
		return KindTokenRefresh, true
	}
	if re.Response != nil && re.Response.StatusCode >= 400 && re.Response.StatusCode < 500 {
		return KindTokenRefresh, true
	}
	return 0, false
}
