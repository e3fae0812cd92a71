package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/cur8/internal/shared"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Detail string `json:"detail"`
}

// errorMapping is checked in order; the first sentinel matched with [errors.Is] decides the response.
var errorMapping = []struct {
	err    error
	status int
	detail string
}{
	{shared.ErrNotAuthenticated, http.StatusUnauthorized, "Not authenticated"},
	{shared.ErrInvalidSession, http.StatusUnauthorized, "Invalid session"},
	{shared.ErrUserNotFound, http.StatusUnauthorized, "Invalid session"},
	{shared.ErrNoRefreshToken, http.StatusUnauthorized, "No Spotify token for user"},
	{shared.ErrRefreshFailed, http.StatusUnauthorized, "Spotify token refresh failed; log in again"},
	{shared.ErrTokenExpired, http.StatusUnauthorized, "Token expired or invalid"},
	{shared.ErrTrackNotFound, http.StatusNotFound, "Track not found"},
	{shared.ErrTrackNotPending, http.StatusBadRequest, "Track not pending"},
	{shared.ErrInvalidAction, http.StatusBadRequest, "action must be 'keep' or 'remove'"},
	{shared.ErrInvalidState, http.StatusBadRequest, "Invalid state"},
	{shared.ErrRateLimited, http.StatusTooManyRequests, "Too many Spotify requests; try shortly."},
	{shared.ErrAuthFailed, http.StatusBadGateway, "Spotify token exchange failed"},
	{shared.ErrAPIRequest, http.StatusBadGateway, "Spotify request failed"},
	{shared.ErrServiceUnavailable, http.StatusServiceUnavailable, "Service unavailable"},
}

// statusFor maps err onto a status code and client-facing detail.
//
// Input errors carry their own message; anything unrecognized is a 500 without internals.
func statusFor(err error) (int, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.status, m.detail
		}
	}

	if errors.Is(err, shared.ErrInvalidInput) || errors.Is(err, shared.ErrInvalidArgument) {
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// fail logs unexpected errors and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, detail)
}
