// Spotify Web API client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/cur8/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// MaxPageSize is the largest page /me/tracks accepts.
	MaxPageSize = 50

	// tokenExpiryBuffer refreshes access tokens this long before they expire.
	tokenExpiryBuffer = 60 * time.Second
)

// Scopes requested at login.
var Scopes = []string{"user-library-read", "user-library-modify"}

// SpotifyService holds the OAuth2 configuration for the Spotify accounts service.
type SpotifyService struct {
	config     *oauth2.Config
	apiURL     string
	httpClient *http.Client
}

// NewSpotifyService creates a Spotify service for a public PKCE client.
func NewSpotifyService(conf shared.SpotifyConfig) (*SpotifyService, error) {
	if conf.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}
	if conf.RedirectURI == "" {
		return nil, fmt.Errorf("%w: spotify redirect_uri", shared.ErrMissingCredentials)
	}

	endpoint := spotify.Endpoint
	if conf.AuthURL != "" {
		endpoint.AuthURL = conf.AuthURL
	}
	if conf.TokenURL != "" {
		endpoint.TokenURL = conf.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	apiURL := spotifyBaseURL
	if conf.APIURL != "" {
		apiURL = strings.TrimRight(conf.APIURL, "/")
	}

	return &SpotifyService{
		config: &oauth2.Config{
			ClientID:    conf.ClientID,
			RedirectURL: conf.RedirectURI,
			Scopes:      Scopes,
			Endpoint:    endpoint,
		},
		apiURL: apiURL,
	}, nil
}

// WithHTTPClient sets the base client used for token requests and API calls.
func (s *SpotifyService) WithHTTPClient(c *http.Client) *SpotifyService {
	s.httpClient = c
	return s
}

// RedirectURI returns the callback URL registered with Spotify.
func (s *SpotifyService) RedirectURI() string {
	return s.config.RedirectURL
}

// AuthURL returns the authorize URL for state, carrying the S256 challenge derived from verifier.
func (s *SpotifyService) AuthURL(state, verifier string) string {
	return s.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code and its PKCE verifier for a token pair.
func (s *SpotifyService) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.context(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Client returns a [SpotifyClient] for token.
//
// The token is refreshed once it is within a minute of expiring; onRefresh receives every refreshed token and may be
// nil. A failing onRefresh fails the request.
func (s *SpotifyService) Client(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token) error) *SpotifyClient {
	ctx = s.context(ctx)
	src := &refreshableTokenSource{
		ctx:          ctx,
		config:       s.config,
		refreshToken: token.RefreshToken,
		callback:     onRefresh,
	}

	return &SpotifyClient{
		apiURL:     s.apiURL,
		httpClient: oauth2.NewClient(ctx, oauth2.ReuseTokenSourceWithExpiry(token, src, tokenExpiryBuffer)),
	}
}

func (s *SpotifyService) context(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// refreshableTokenSource always performs a refresh_token grant and reports the result to callback.
//
// It sits behind [oauth2.ReuseTokenSourceWithExpiry], which decides when a refresh is due.
type refreshableTokenSource struct {
	ctx          context.Context
	config       *oauth2.Config
	callback     func(*oauth2.Token) error
	mu           sync.Mutex
	refreshToken string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	token, err := r.config.TokenSource(r.ctx, &oauth2.Token{RefreshToken: r.refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	if token.RefreshToken == "" {
		token.RefreshToken = r.refreshToken
	}
	r.refreshToken = token.RefreshToken

	if r.callback != nil {
		if err := r.callback(token); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
		}
	}
	return token, nil
}

// SpotifyClient calls the Spotify Web API on behalf of one user.
type SpotifyClient struct {
	apiURL     string
	httpClient *http.Client
}

// doRequest performs an authenticated request and decodes a JSON response into result when non-nil.
func (c *SpotifyClient) doRequest(ctx context.Context, method, endpoint string, query url.Values, result any) error {
	apiURL := c.apiURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return shared.ErrTokenExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		return shared.ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify %s %s returned status %d", shared.ErrAPIRequest, method, endpoint, resp.StatusCode)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Me retrieves the current user's profile.
func (c *SpotifyClient) Me(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SavedTracks retrieves the user's saved tracks with pagination. limit is clamped to 1..[MaxPageSize].
func (c *SpotifyClient) SavedTracks(ctx context.Context, limit, offset int) (*SavedTracksPage, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var page SavedTracksPage
	if err := c.doRequest(ctx, http.MethodGet, "/me/tracks", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Track retrieves a single track by ID.
func (c *SpotifyClient) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := c.doRequest(ctx, http.MethodGet, "/tracks/"+url.PathEscape(trackID), nil, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// RemoveSavedTracks removes up to [MaxPageSize] tracks from the user's library.
func (c *SpotifyClient) RemoveSavedTracks(ctx context.Context, trackIDs ...string) error {
	if len(trackIDs) == 0 {
		return fmt.Errorf("%w: no track IDs provided", shared.ErrMissingArgument)
	}
	if len(trackIDs) > MaxPageSize {
		return fmt.Errorf("%w: maximum %d track IDs allowed", shared.ErrInvalidArgument, MaxPageSize)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(trackIDs, ","))
	return c.doRequest(ctx, http.MethodDelete, "/me/tracks", query, nil)
}
