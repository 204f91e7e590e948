// Package httpapi is the HTTP surface: the login flow, the JSON API and the
// client metadata document.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tumbsky/tumbsky/internal/logging"
	"github.com/tumbsky/tumbsky/internal/server/auth"
	"github.com/tumbsky/tumbsky/internal/server/oauth"
	"github.com/tumbsky/tumbsky/internal/server/services"
	"github.com/tumbsky/tumbsky/internal/server/session"
	"github.com/tumbsky/tumbsky/internal/server/timeline"
)

const shutdownTimeout = 10 * time.Second

// Options wires a Server. OAuth and Metadata are nil when login is disabled;
// JWKS is nil unless the client authenticates with a key.
type Options struct {
	Address  string
	Logger   logging.Logger
	Users    *services.UserService
	Sync     *services.SyncService
	Timeline *timeline.Engine
	Resolver *session.Resolver
	Cookies  *auth.Cookies
	OAuth    oauth.Client
	Metadata *oauth.Metadata
	JWKS     *oauth.JWKS

	// LoginRate is the sustained number of logins per minute allowed from
	// one address; LoginBurst bounds bursts.
	LoginRate  int
	LoginBurst int
}

type Server struct {
	address  string
	log      logging.Logger
	users    *services.UserService
	sync     *services.SyncService
	timeline *timeline.Engine
	resolver *session.Resolver
	cookies  *auth.Cookies
	oauth    oauth.Client
	metadata *oauth.Metadata
	jwks     *oauth.JWKS
	logins   *ipLimiter
}

func NewServer(o Options) *Server {
	log := o.Logger
	if log == nil {
		log = logging.Nop{}
	}
	return &Server{
		address:  o.Address,
		log:      log.With("module", "http_server"),
		users:    o.Users,
		sync:     o.Sync,
		timeline: o.Timeline,
		resolver: o.Resolver,
		cookies:  o.Cookies,
		oauth:    o.OAuth,
		metadata: o.Metadata,
		jwks:     o.JWKS,
		logins:   newIPLimiter(o.LoginRate, o.LoginBurst),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(session.Middleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc(oauth.MetadataPath, s.handleMetadata).Methods(http.MethodGet)
	r.HandleFunc(oauth.JWKSPath, s.handleJWKS).Methods(http.MethodGet)

	r.Handle("/oauth/login", s.logins.middleware(http.HandlerFunc(s.handleLogin))).Methods(http.MethodGet)
	r.HandleFunc(oauth.CallbackPath, s.handleCallback).Methods(http.MethodGet)
	r.HandleFunc("/oauth/logout", s.handleLogout).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/timeline", s.handleTimeline).Methods(http.MethodGet)
	api.HandleFunc("/users/{handle}", s.handleUserPage).Methods(http.MethodGet)
	api.HandleFunc("/me", s.authed(s.handleMe)).Methods(http.MethodGet)
	api.HandleFunc("/posts", s.authed(s.handleMyPosts)).Methods(http.MethodGet)
	api.HandleFunc("/settings/css", s.authed(s.handleSetCSS)).Methods(http.MethodPost)
	api.HandleFunc("/sync", s.authed(s.handleSync)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.log.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.log.Warn(ctx, "http shutdown", "error", err)
		}
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
	err = srv.Serve(listen)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}
