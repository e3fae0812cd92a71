// package models defines the data model for the cur8 review service
package models

import (
	"fmt"
	"strings"
	"time"
)

// Action is the outcome of a swipe.
type Action string

const (
	ActionKeep   Action = "keep"
	ActionRemove Action = "remove"
)

// ParseAction validates s as an [Action].
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionKeep, ActionRemove:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// State is the per-user review state of a track.
type State string

const (
	StatePending State = "pending"
	StateKept    State = "kept"
	StateRemoved State = "removed"
)

// StateFor maps a swipe action onto the state it produces.
func StateFor(a Action) State {
	if a == ActionRemove {
		return StateRemoved
	}
	return StateKept
}

// User is the authenticated Spotify account as exposed by /auth/me.
type User struct {
	ID            string    `json:"id"`
	SpotifyUserID string    `json:"spotify_user_id"`
	DisplayName   *string   `json:"display_name"`
	AvatarURL     *string   `json:"avatar_url"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// Name returns the display name, falling back to the Spotify user id.
func (u *User) Name() string {
	if u == nil {
		return "You"
	}
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.SpotifyUserID
}

// Validate checks required fields before persistence.
func (u *User) Validate() error {
	if u.SpotifyUserID == "" {
		return fmt.Errorf("spotify_user_id is required")
	}
	return nil
}

// Track is saved-track metadata. Nullable columns are pointers so they encode as JSON null.
type Track struct {
	ID             string    `json:"id"`
	SpotifyTrackID string    `json:"spotify_track_id"`
	Name           string    `json:"name"`
	Artists        *string   `json:"artists"`
	AlbumName      *string   `json:"album_name"`
	ArtworkURL     *string   `json:"artwork_url"`
	PreviewURL     *string   `json:"preview_url"`
	DurationMS     *int      `json:"duration_ms"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// Validate checks required fields before persistence.
func (t *Track) Validate() error {
	if t.SpotifyTrackID == "" {
		return fmt.Errorf("spotify_track_id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// Duration returns the track length, zero when unknown.
func (t *Track) Duration() time.Duration {
	if t.DurationMS == nil {
		return 0
	}
	return time.Duration(*t.DurationMS) * time.Millisecond
}

// SwipeRequest is the body of POST /tracks/swipe.
type SwipeRequest struct {
	SpotifyTrackID string `json:"spotify_track_id"`
	Action         Action `json:"action"`
}

// StatusResponse is the generic {"status": "ok"} body.
type StatusResponse struct {
	Status string `json:"status"`
}

// LoginResponse is the body of GET /auth/login.
type LoginResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// Stats counts a user's tracks by review state.
type Stats struct {
	Pending int `json:"pending"`
	Kept    int `json:"kept"`
	Removed int `json:"removed"`
}

// Total is the number of tracks known for the user.
func (s Stats) Total() int {
	return s.Pending + s.Kept + s.Removed
}

// SpotifyToken is the persisted OAuth token pair for a user.
type SpotifyToken struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Scope        string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks required fields before persistence.
func (t *SpotifyToken) Validate() error {
	if t.UserID == "" || t.AccessToken == "" {
		return fmt.Errorf("user_id and access_token are required")
	}
	if t.RefreshToken == "" {
		return fmt.Errorf("refresh_token is required")
	}
	return nil
}

// TrackState is the review state of one track for one user.
type TrackState struct {
	UserID    string
	TrackID   string
	State     State
	UpdatedAt time.Time
}

// Session is a server-side login session referenced by the signed session cookie.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PKCEState holds the code verifier between authorize redirect and callback.
type PKCEState struct {
	State     string
	Verifier  string
	ReturnTo  string
	ExpiresAt time.Time
}
