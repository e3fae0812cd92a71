package services

import (
	"context"
	"strings"

	"github.com/desertthunder/cur8/internal/models"
)

// Library is the slice of the Spotify Web API the review queue depends on.
//
// [SpotifyClient] implements it against the real API; tests substitute fakes.
type Library interface {
	// Me returns the profile of the token's owner.
	Me(ctx context.Context) (*SpotifyUser, error)

	// SavedTracks returns one page of the user's liked tracks.
	SavedTracks(ctx context.Context, limit, offset int) (*SavedTracksPage, error)

	// Track returns the full track object, including its preview_url.
	Track(ctx context.Context, trackID string) (*SpotifyTrack, error)

	// RemoveSavedTracks deletes tracks from the user's library.
	RemoveSavedTracks(ctx context.Context, trackIDs ...string) error
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	PreviewURL *string         `json:"preview_url"`
	URI        string          `json:"uri"`
}

// SavedTrack represents a track saved in the user's library.
type SavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SavedTracksPage represents a paginated response of saved tracks.
type SavedTracksPage struct {
	Items    []SavedTrack `json:"items"`
	Total    int          `json:"total"`
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
	Next     *string      `json:"next"`
	Previous *string      `json:"previous"`
}

// Model maps the Spotify profile onto a [models.User].
func (u SpotifyUser) Model() models.User {
	user := models.User{SpotifyUserID: u.ID}
	if u.DisplayName != "" {
		name := u.DisplayName
		user.DisplayName = &name
	}
	if len(u.Images) > 0 {
		avatar := u.Images[0].URL
		user.AvatarURL = &avatar
	}
	return user
}

// Model maps the Spotify track onto a [models.Track].
//
// Artist names are comma joined and the first (largest) album image is used as artwork. Empty values become nil.
func (t SpotifyTrack) Model() models.Track {
	track := models.Track{SpotifyTrackID: t.ID, Name: t.Name}

	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) > 0 {
		artists := strings.Join(names, ", ")
		track.Artists = &artists
	}

	if t.Album.Name != "" {
		album := t.Album.Name
		track.AlbumName = &album
	}
	if len(t.Album.Images) > 0 && t.Album.Images[0].URL != "" {
		artwork := t.Album.Images[0].URL
		track.ArtworkURL = &artwork
	}
	if t.PreviewURL != nil && *t.PreviewURL != "" {
		preview := *t.PreviewURL
		track.PreviewURL = &preview
	}
	if t.DurationMS > 0 {
		duration := t.DurationMS
		track.DurationMS = &duration
	}
	return track
}

// Tracks maps the page's entries onto [models.Track], skipping local files and unavailable tracks.
func (p *SavedTracksPage) Tracks() []models.Track {
	tracks := make([]models.Track, 0, len(p.Items))
	for _, item := range p.Items {
		if item.Track.ID == "" || item.Track.Name == "" {
			continue
		}
		tracks = append(tracks, item.Track.Model())
	}
	return tracks
}
