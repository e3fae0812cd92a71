package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/repositories"
	"github.com/desertthunder/cur8/internal/services"
	"github.com/desertthunder/cur8/internal/shared"
	tu "github.com/desertthunder/cur8/internal/testing"
)

type mockLibrary struct {
	saved   []services.SavedTrack
	removed []string
}

func (m *mockLibrary) Me(ctx context.Context) (*services.SpotifyUser, error) {
	return &services.SpotifyUser{ID: "spotify-user"}, nil
}

func (m *mockLibrary) SavedTracks(ctx context.Context, limit, offset int) (*services.SavedTracksPage, error) {
	page := &services.SavedTracksPage{Total: len(m.saved), Limit: limit, Offset: offset}
	if offset < len(m.saved) {
		page.Items = m.saved[offset:min(offset+limit, len(m.saved))]
	}
	return page, nil
}

func (m *mockLibrary) Track(ctx context.Context, trackID string) (*services.SpotifyTrack, error) {
	return &services.SpotifyTrack{ID: trackID}, nil
}

func (m *mockLibrary) RemoveSavedTracks(ctx context.Context, trackIDs ...string) error {
	m.removed = append(m.removed, trackIDs...)
	return nil
}

// newFakeSpotify serves the accounts token endpoint and /v1/me.
func newFakeSpotify(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "refresh",
		})
	})
	mux.HandleFunc("GET /v1/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "spotify-42", "display_name": "Listener"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestServer(t *testing.T, lib *mockLibrary) *Server {
	t.Helper()

	fake := newFakeSpotify(t)
	config := shared.DefaultConfig()
	config.Credentials.Spotify.TokenURL = fake.URL + "/api/token"
	config.Credentials.Spotify.APIURL = fake.URL + "/v1"

	spotify, err := services.NewSpotifyService(config.Credentials.Spotify)
	if err != nil {
		t.Fatalf("failed to create spotify service: %v", err)
	}

	s, err := New(config, tu.MustOpenDB(t), spotify.WithHTTPClient(fake.Client()), log.New(io.Discard))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	s.curator.WithLibraries(func(ctx context.Context, userID string) (services.Library, error) { return lib, nil })
	return s
}

// sessionCookie creates a user and session and returns the signed cookie for them.
func sessionCookie(t *testing.T, s *Server) (*http.Cookie, string) {
	t.Helper()
	ctx := context.Background()

	user := &models.User{SpotifyUserID: "spotify-user"}
	if err := repositories.NewUserRepository(s.db).Upsert(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	value, err := s.cookies.Encode(session.ID)
	if err != nil {
		t.Fatalf("failed to encode cookie: %v", err)
	}
	return s.cookies.Cookie(value), user.ID
}

func do(s *Server, method, target string, body io.Reader, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Detail
}

func savedItems(n int) []services.SavedTrack {
	items := make([]services.SavedTrack, n)
	for i := range items {
		items[i] = services.SavedTrack{Track: services.SpotifyTrack{ID: fmt.Sprintf("sp-%d", i), Name: fmt.Sprintf("Track %d", i)}}
	}
	return items
}

func TestServer_Basics(t *testing.T) {
	s := newTestServer(t, &mockLibrary{})

	t.Run("health", func(t *testing.T) {
		rec := do(s, http.MethodGet, "/health", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := do(s, http.MethodGet, "/nope", nil, nil)
		if rec.Code != http.StatusNotFound || detail(t, rec) != "Not Found" {
			t.Errorf("expected JSON 404, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := do(s, http.MethodGet, "/auth/logout", nil, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("redirect uri", func(t *testing.T) {
		rec := do(s, http.MethodGet, "/auth/redirect-uri", nil, nil)
		if !strings.Contains(rec.Body.String(), "/auth/callback") {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Server.SessionSecret = "short"
		if _, err := New(config, nil, nil, log.New(io.Discard)); err == nil {
			t.Error("expected error for short session secret")
		}
	})
}

func TestServer_Auth(t *testing.T) {
	login := func(t *testing.T, s *Server, returnTo string) string {
		t.Helper()
		target := "/auth/login"
		if returnTo != "" {
			target += "?" + url.Values{"return_to": {returnTo}}.Encode()
		}

		rec := do(s, http.MethodGet, target, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("login: expected 200, got %d %s", rec.Code, rec.Body.String())
		}

		var resp models.LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode login response: %v", err)
		}
		authURL, err := url.Parse(resp.AuthorizationURL)
		if err != nil {
			t.Fatalf("failed to parse authorization url: %v", err)
		}
		if authURL.Query().Get("code_challenge_method") != "S256" {
			t.Errorf("expected PKCE challenge in %s", resp.AuthorizationURL)
		}
		return authURL.Query().Get("state")
	}

	t.Run("terminal login round trip", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{})
		state := login(t, s, "http://127.0.0.1:3000/callback?nonce=abc")

		rec := do(s, http.MethodGet, "/auth/callback?code=the-code&state="+url.QueryEscape(state), nil, nil)
		if rec.Code != http.StatusFound {
			t.Fatalf("callback: expected 302, got %d %s", rec.Code, rec.Body.String())
		}

		location, err := url.Parse(rec.Header().Get("Location"))
		if err != nil {
			t.Fatalf("bad location: %v", err)
		}
		if location.Host != "127.0.0.1:3000" || location.Query().Get("nonce") != "abc" {
			t.Errorf("unexpected redirect %s", location)
		}
		session := location.Query().Get("session")
		if session == "" {
			t.Fatal("expected session in redirect")
		}

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == services.SessionCookie {
				cookie = c
			}
		}
		if cookie == nil || cookie.Value != session || !cookie.HttpOnly {
			t.Fatalf("expected matching HttpOnly session cookie, got %+v", cookie)
		}

		rec = do(s, http.MethodGet, "/auth/me", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("me: expected 200, got %d %s", rec.Code, rec.Body.String())
		}
		var user models.User
		json.Unmarshal(rec.Body.Bytes(), &user)
		if user.SpotifyUserID != "spotify-42" || user.Name() != "Listener" {
			t.Errorf("unexpected user %+v", user)
		}

		rec = do(s, http.MethodGet, "/auth/callback?code=the-code&state="+url.QueryEscape(state), nil, nil)
		if rec.Code != http.StatusBadRequest || detail(t, rec) != "Invalid state" {
			t.Errorf("replayed state: expected 400 Invalid state, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("browser login redirects to frontend", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{})
		state := login(t, s, "")

		rec := do(s, http.MethodGet, "/auth/callback?code=c&state="+url.QueryEscape(state), nil, nil)
		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		if got := rec.Header().Get("Location"); got != s.config.Server.FrontendURL {
			t.Errorf("expected redirect to frontend, got %s", got)
		}
	})

	t.Run("return_to must be loopback", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{})

		for _, bad := range []string{"https://evil.example/cb", "http://evil.example/cb", "ftp://127.0.0.1/x", "not a url"} {
			rec := do(s, http.MethodGet, "/auth/login?"+url.Values{"return_to": {bad}}.Encode(), nil, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("return_to %q: expected 400, got %d", bad, rec.Code)
			}
		}

		for _, good := range []string{"http://localhost:3000/callback", "http://[::1]:3000/callback"} {
			rec := do(s, http.MethodGet, "/auth/login?"+url.Values{"return_to": {good}}.Encode(), nil, nil)
			if rec.Code != http.StatusOK {
				t.Errorf("return_to %q: expected 200, got %d", good, rec.Code)
			}
		}
	})

	t.Run("callback errors", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{})

		rec := do(s, http.MethodGet, "/auth/callback?error=access_denied", nil, nil)
		if rec.Code != http.StatusBadRequest || !strings.Contains(detail(t, rec), "access_denied") {
			t.Errorf("expected 400 with error, got %d %s", rec.Code, rec.Body.String())
		}

		rec = do(s, http.MethodGet, "/auth/callback?code=c", nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for missing state, got %d", rec.Code)
		}

		rec = do(s, http.MethodGet, "/auth/callback?code=c&state=unknown", nil, nil)
		if rec.Code != http.StatusBadRequest || detail(t, rec) != "Invalid state" {
			t.Errorf("expected 400 Invalid state, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("me requires a valid session", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{})

		rec := do(s, http.MethodGet, "/auth/me", nil, nil)
		if rec.Code != http.StatusUnauthorized || detail(t, rec) != "Not authenticated" {
			t.Errorf("expected 401 Not authenticated, got %d %s", rec.Code, rec.Body.String())
		}

		forged := &http.Cookie{Name: services.SessionCookie, Value: "forged"}
		if rec := do(s, http.MethodGet, "/auth/me", nil, forged); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for forged cookie, got %d", rec.Code)
		}

		other := NewSessionCodec(strings.Repeat("x", 32), false)
		value, _ := other.Encode("some-session")
		if rec := do(s, http.MethodGet, "/auth/me", nil, &http.Cookie{Name: services.SessionCookie, Value: value}); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for cookie signed with another key, got %d", rec.Code)
		}
	})

	t.Run("logout", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{})
		cookie, _ := sessionCookie(t, s)

		rec := do(s, http.MethodPost, "/auth/logout", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		cleared := rec.Result().Cookies()
		if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
			t.Errorf("expected cookie to be cleared, got %+v", cleared)
		}

		if rec := do(s, http.MethodGet, "/auth/me", nil, cookie); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected session to be gone, got %d", rec.Code)
		}

		if rec := do(s, http.MethodPost, "/auth/logout", nil, nil); rec.Code != http.StatusOK {
			t.Errorf("logout without session should succeed, got %d", rec.Code)
		}
	})
}

func TestServer_Tracks(t *testing.T) {
	swipe := func(s *Server, cookie *http.Cookie, id, action string) *httptest.ResponseRecorder {
		body := fmt.Sprintf(`{"spotify_track_id":%q,"action":%q}`, id, action)
		return do(s, http.MethodPost, "/tracks/swipe", strings.NewReader(body), cookie)
	}

	t.Run("requires a session", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{})
		for _, path := range []string{"/tracks/next", "/tracks/saved", "/tracks/stats"} {
			if rec := do(s, http.MethodGet, path, nil, nil); rec.Code != http.StatusUnauthorized {
				t.Errorf("%s: expected 401, got %d", path, rec.Code)
			}
		}
	})

	t.Run("next then swipe", func(t *testing.T) {
		lib := &mockLibrary{saved: savedItems(2)}
		s := newTestServer(t, lib)
		cookie, _ := sessionCookie(t, s)

		rec := do(s, http.MethodGet, "/tracks/next", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
		}
		var track models.Track
		if err := json.Unmarshal(rec.Body.Bytes(), &track); err != nil {
			t.Fatalf("failed to decode track: %v", err)
		}

		if rec := swipe(s, cookie, track.SpotifyTrackID, "remove"); rec.Code != http.StatusOK {
			t.Fatalf("swipe: expected 200, got %d %s", rec.Code, rec.Body.String())
		}
		if len(lib.removed) != 1 || lib.removed[0] != track.SpotifyTrackID {
			t.Errorf("expected Spotify removal, got %v", lib.removed)
		}

		rec = swipe(s, cookie, track.SpotifyTrackID, "keep")
		if rec.Code != http.StatusBadRequest || detail(t, rec) != "Track not pending" {
			t.Errorf("expected 400 Track not pending, got %d %s", rec.Code, rec.Body.String())
		}

		rec = do(s, http.MethodGet, "/tracks/stats", nil, cookie)
		var stats models.Stats
		json.Unmarshal(rec.Body.Bytes(), &stats)
		if stats.Pending != 1 || stats.Removed != 1 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})

	t.Run("empty queue returns null", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{})
		cookie, _ := sessionCookie(t, s)

		rec := do(s, http.MethodGet, "/tracks/next", nil, cookie)
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "null" {
			t.Errorf("expected 200 null, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("swipe validation", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{saved: savedItems(1)})
		cookie, _ := sessionCookie(t, s)
		do(s, http.MethodGet, "/tracks/next", nil, cookie)

		rec := swipe(s, cookie, "sp-0", "skip")
		if rec.Code != http.StatusBadRequest || detail(t, rec) != "action must be 'keep' or 'remove'" {
			t.Errorf("expected 400 for bad action, got %d %s", rec.Code, rec.Body.String())
		}

		rec = swipe(s, cookie, "missing", "keep")
		if rec.Code != http.StatusNotFound || detail(t, rec) != "Track not found" {
			t.Errorf("expected 404, got %d %s", rec.Code, rec.Body.String())
		}

		rec = do(s, http.MethodPost, "/tracks/swipe", strings.NewReader("{"), cookie)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for malformed body, got %d", rec.Code)
		}
	})

	t.Run("saved paging bounds", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{saved: savedItems(30)})
		cookie, _ := sessionCookie(t, s)

		for _, query := range []string{"limit=0", "limit=51", "offset=-1", "limit=abc"} {
			if rec := do(s, http.MethodGet, "/tracks/saved?"+query, nil, cookie); rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", query, rec.Code)
			}
		}

		rec := do(s, http.MethodGet, "/tracks/saved", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var page services.SavedTracksPage
		json.Unmarshal(rec.Body.Bytes(), &page)
		if len(page.Items) != defaultSavedLimit || page.Total != 30 {
			t.Errorf("expected default page of %d, got %d of %d", defaultSavedLimit, len(page.Items), page.Total)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		s := newTestServer(t, &mockLibrary{})
		s.limiter = NewRateLimiter(0, 2)
		cookie, _ := sessionCookie(t, s)

		for range 2 {
			if rec := do(s, http.MethodGet, "/tracks/next", nil, cookie); rec.Code != http.StatusOK {
				t.Fatalf("expected 200 within burst, got %d", rec.Code)
			}
		}

		rec := do(s, http.MethodGet, "/tracks/next", nil, cookie)
		if rec.Code != http.StatusTooManyRequests || detail(t, rec) != "Too many Spotify requests; try shortly." {
			t.Errorf("expected 429, got %d %s", rec.Code, rec.Body.String())
		}

		if rec := do(s, http.MethodGet, "/tracks/stats", nil, cookie); rec.Code != http.StatusOK {
			t.Errorf("stats does not call Spotify and should not be limited, got %d", rec.Code)
		}
	})
}

func TestServer_Cleanup(t *testing.T) {
	s := newTestServer(t, &mockLibrary{})
	ctx := context.Background()

	s.limiter.Allow("someone")
	s.limiter.now = func() time.Time { return time.Now().Add(time.Hour) }

	s.Cleanup(ctx)
	if s.limiter.Len() != 0 {
		t.Errorf("expected idle limiter to be pruned, got %d", s.limiter.Len())
	}
}
