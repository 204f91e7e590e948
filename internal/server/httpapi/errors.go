package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/server/oauth"
)

// APIError is the body of every failed API response.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIError{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a service error to its response. Anything unrecognised is
// an internal error and its text is not exposed.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized), sessionInvalid(err):
		return http.StatusUnauthorized, "UNAUTHORIZED", "login required"
	case errors.Is(err, common.ErrNotConfigured):
		return http.StatusServiceUnavailable, "NOT_CONFIGURED", "oauth not configured - requires https url"
	case errors.Is(err, common.ErrInvalidCursor):
		return http.StatusBadRequest, "INVALID_CURSOR", "invalid cursor"
	case errors.Is(err, common.ErrInvalidState):
		return http.StatusBadRequest, "INVALID_STATE", "login expired or already used, please retry"
	case errors.Is(err, oauth.ErrAccessDenied):
		return http.StatusBadRequest, "ACCESS_DENIED", "authorization was denied"
	case errors.Is(err, oauth.ErrResolution):
		return http.StatusBadRequest, "UNKNOWN_ACCOUNT", "could not resolve account"
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT", err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "NOT_FOUND", "not found"
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}

// sessionInvalid matches a stored session that became unusable mid-request,
// typically wrapped in the *url.Error of a call to the account's server.
func sessionInvalid(err error) bool {
	_, ok := oauth.IsSessionInvalid(err)
	return ok
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := statusFor(err)
	if sessionInvalid(err) && s.cookies != nil {
		s.cookies.Clear(w)
	}
	if status == http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.log.Debug(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeAPIError(w, status, code, msg)
}
