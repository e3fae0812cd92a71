// Typed client for the cur8 backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/shared"
)

// SessionCookie is the name of the cookie carrying the signed session id.
const SessionCookie = "cur8_session"

// DefaultAPIURL is the backend address used when none is configured.
const DefaultAPIURL = "http://127.0.0.1:8000"

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

// Unwrap maps the status onto a shared sentinel so callers can use [errors.Is].
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return shared.ErrNotAuthenticated
	case http.StatusTooManyRequests:
		return shared.ErrRateLimited
	default:
		return shared.ErrAPIRequest
	}
}

// newAPIError reads the "detail" field of an error body, falling back to the status text.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Detail any `json:"detail"`
	}

	detail := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok {
			detail = s
		}
	}
	if detail == "" {
		detail = http.StatusText(status)
	}
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d", status)
	}
	return &APIError{StatusCode: status, Detail: detail}
}

// APIClient makes typed requests to the cur8 backend.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	session    string
}

// NewAPIClient creates a client for the backend at baseURL.
func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the backend address.
func (a *APIClient) BaseURL() string { return a.baseURL }

// SetSession sets the signed session value sent as the session cookie.
func (a *APIClient) SetSession(session string) { a.session = session }

// Session returns the current signed session value.
func (a *APIClient) Session() string { return a.session }

// do sends a request and decodes the JSON response into result.
func (a *APIClient) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: a.session})
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks that the backend and its database are reachable.
func (a *APIClient) Health(ctx context.Context) (*models.StatusResponse, error) {
	var status models.StatusResponse
	if err := a.do(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// LoginURL asks the backend to start a login and returns the Spotify authorize URL.
//
// When returnTo is set the backend redirects there with the session after the callback instead of to the web
// frontend. Only loopback addresses are accepted.
func (a *APIClient) LoginURL(ctx context.Context, returnTo string) (string, error) {
	path := "/auth/login"
	if returnTo != "" {
		path += "?" + url.Values{"return_to": {returnTo}}.Encode()
	}

	var resp models.LoginResponse
	if err := a.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.AuthorizationURL == "" {
		return "", fmt.Errorf("%w: empty authorization_url", shared.ErrAPIRequest)
	}
	return resp.AuthorizationURL, nil
}

// Me returns the user owning the session.
func (a *APIClient) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := a.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the session on the backend. The local session value is cleared even if the request fails.
func (a *APIClient) Logout(ctx context.Context) error {
	defer a.SetSession("")
	return a.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// NextTrack returns the next pending track, or nil when the queue is empty.
func (a *APIClient) NextTrack(ctx context.Context) (*models.Track, error) {
	var track *models.Track
	if err := a.do(ctx, http.MethodGet, "/tracks/next", nil, &track); err != nil {
		return nil, err
	}
	return track, nil
}

// Swipe records a keep or remove decision for a track.
func (a *APIClient) Swipe(ctx context.Context, spotifyTrackID string, action models.Action) error {
	req := models.SwipeRequest{SpotifyTrackID: spotifyTrackID, Action: action}
	return a.do(ctx, http.MethodPost, "/tracks/swipe", req, nil)
}

// Saved returns one page of the user's Spotify library.
func (a *APIClient) Saved(ctx context.Context, limit, offset int) (*SavedTracksPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var page SavedTracksPage
	if err := a.do(ctx, http.MethodGet, "/tracks/saved?"+query.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Stats returns the user's review counts.
func (a *APIClient) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := a.do(ctx, http.MethodGet, "/tracks/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// IsUnauthorized reports whether err is a rejected session.
func IsUnauthorized(err error) bool {
	return errors.Is(err, shared.ErrNotAuthenticated)
}
