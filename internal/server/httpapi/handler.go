package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/server/css"
	"github.com/tumbsky/tumbsky/internal/server/oauth"
	"github.com/tumbsky/tumbsky/internal/server/session"
	"github.com/tumbsky/tumbsky/internal/server/timeline"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if s.metadata == nil {
		s.writeError(w, r, common.ErrNotConfigured)
		return
	}
	writeJSON(w, http.StatusOK, s.metadata)
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	if s.jwks == nil {
		s.writeError(w, r, common.ErrNotConfigured)
		return
	}
	writeJSON(w, http.StatusOK, s.jwks)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := s.requireOAuth(); err != nil {
		s.writeError(w, r, err)
		return
	}

	identifier := strings.TrimPrefix(strings.TrimSpace(r.URL.Query().Get("identifier")), "@")
	if !oauth.IsActorIdentifier(identifier) {
		s.writeError(w, r, fmt.Errorf("%w: identifier must be a handle or did", common.ErrInvalidInput))
		return
	}

	u, err := s.oauth.Authorize(r.Context(), identifier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, u, http.StatusSeeOther)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if err := s.requireOAuth(); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()

	sess, err := s.oauth.Callback(ctx, r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.Register(ctx, sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cookies.Set(w, u.DID)
	s.log.Info(ctx, "user logged in", "did", u.DID, "handle", u.Handle)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout only forgets the browser; the stored session stays usable for
// the next login.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.cookies.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type meResponse struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	CustomCSS   string `json:"customCss"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, a *session.Auth) {
	ctx := r.Context()
	u, err := s.users.Get(ctx, a.DID)
	if errors.Is(err, common.ErrorNotFound) {
		// authenticated but never registered, e.g. the row was removed by hand
		u = nil
	} else if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := meResponse{DID: a.DID, Handle: common.InvalidHandle}
	if u != nil {
		resp.Handle = u.Handle
		resp.CustomCSS = u.CustomCSS
	}

	p, err := s.users.Profile(ctx, a.DID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p != nil {
		resp.DisplayName = p.DisplayName
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	page, err := s.timeline.Page(r.Context(), timeline.Query{Cursor: r.URL.Query().Get("cursor")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleMyPosts(w http.ResponseWriter, r *http.Request, a *session.Auth) {
	page, err := s.timeline.Page(r.Context(), timeline.Query{Owner: a.DID, Cursor: r.URL.Query().Get("cursor")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type pageUser struct {
	DID       string `json:"did"`
	Handle    string `json:"handle"`
	CustomCSS string `json:"customCss"`
}

type userPageResponse struct {
	User  pageUser       `json:"user"`
	Posts *timeline.Page `json:"posts"`
}

func (s *Server) handleUserPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle := strings.TrimPrefix(mux.Vars(r)["handle"], "@")

	u, err := s.users.GetByHandle(ctx, handle)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.timeline.Page(ctx, timeline.Query{Owner: u.DID, Cursor: r.URL.Query().Get("cursor")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userPageResponse{
		User:  pageUser{DID: u.DID, Handle: u.Handle, CustomCSS: u.CustomCSS},
		Posts: page,
	})
}

type cssRequest struct {
	CustomCSS *string `json:"customCss"`
}

func (s *Server) handleSetCSS(w http.ResponseWriter, r *http.Request, a *session.Auth) {
	var req cssRequest
	body := http.MaxBytesReader(w, r.Body, 2*css.MaxSize)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}

	raw := ""
	if req.CustomCSS != nil {
		raw = *req.CustomCSS
	}
	clean, err := s.users.SetCSS(r.Context(), a.DID, raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "customCss": clean})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request, a *session.Auth) {
	n, err := s.sync.Sync(r.Context(), a.Session)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "syncedCount": n})
}
