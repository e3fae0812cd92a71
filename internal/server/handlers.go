package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/services"
	"github.com/desertthunder/cur8/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultSavedLimit = 20
	maxBodyBytes      = 1 << 16
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.fail(w, r, fmt.Errorf("%w: database: %v", shared.ErrServiceUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
}

func (s *Server) redirectURI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"redirect_uri": s.spotify.RedirectURI()})
}

// validateReturnTo accepts only http URLs on a loopback host, where the terminal client listens for the session.
func validateReturnTo(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" || u.Host == "" {
		return "", fmt.Errorf("%w: return_to must be an http loopback URL", shared.ErrInvalidInput)
	}

	host := u.Hostname()
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return "", fmt.Errorf("%w: return_to must be an http loopback URL", shared.ErrInvalidInput)
		}
	}
	return u.String(), nil
}

// login stores a fresh PKCE verifier under a random state and returns the Spotify authorize URL.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	returnTo, err := validateReturnTo(r.URL.Query().Get("return_to"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	verifier := oauth2.GenerateVerifier()

	if err := s.pkce.Save(r.Context(), state, verifier, returnTo); err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{AuthorizationURL: s.spotify.AuthURL(state, verifier)})
}

// callback completes the login, sets the session cookie and redirects to the caller.
func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		writeError(w, http.StatusBadRequest, "Authorization failed: "+errParam)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "Missing code or state")
		return
	}

	pkce, err := s.pkce.Pop(r.Context(), state)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.curator.Login(r.Context(), code, pkce.Verifier)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	session, err := s.sessions.Create(r.Context(), user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	value, err := s.cookies.Encode(session.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.SetCookie(w, s.cookies.Cookie(value))

	target := s.config.Server.FrontendURL
	if pkce.ReturnTo != "" {
		u, err := url.Parse(pkce.ReturnTo)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: stored return_to", shared.ErrInvalidState))
			return
		}
		params := u.Query()
		params.Set("session", value)
		u.RawQuery = params.Encode()
		target = u.String()
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, err := s.curator.User(r.Context(), UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// logout deletes the session if the cookie carries a valid one. It succeeds either way.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := s.cookies.FromRequest(r); err == nil {
		if err := s.sessions.Delete(r.Context(), sessionID); err != nil {
			s.logger.Warn("failed to delete session", "error", err)
		}
	}

	http.SetCookie(w, s.cookies.Clear())
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
}

func (s *Server) nextTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.curator.Next(r.Context(), UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (s *Server) swipe(w http.ResponseWriter, r *http.Request) {
	var body models.SwipeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		s.fail(w, r, fmt.Errorf("%w: invalid request body", shared.ErrInvalidInput))
		return
	}
	if body.SpotifyTrackID == "" {
		s.fail(w, r, fmt.Errorf("%w: spotify_track_id is required", shared.ErrInvalidInput))
		return
	}

	if err := s.curator.Swipe(r.Context(), UserID(r.Context()), body.SpotifyTrackID, string(body.Action)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
}

// intParam parses an optional integer query parameter.
func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", shared.ErrInvalidInput, name)
	}
	return n, nil
}

func (s *Server) saved(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q, "limit", defaultSavedLimit)
	if err == nil && (limit < 1 || limit > services.MaxPageSize) {
		err = fmt.Errorf("%w: limit must be between 1 and %d", shared.ErrInvalidInput, services.MaxPageSize)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	offset, err := intParam(q, "offset", 0)
	if err == nil && offset < 0 {
		err = fmt.Errorf("%w: offset must be >= 0", shared.ErrInvalidInput)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	page, err := s.curator.Saved(r.Context(), UserID(r.Context()), limit, offset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.curator.Stats(r.Context(), UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
