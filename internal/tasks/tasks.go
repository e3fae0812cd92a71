package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/repositories"
	"github.com/desertthunder/cur8/internal/services"
	"github.com/desertthunder/cur8/internal/shared"
	"golang.org/x/oauth2"
)

// LibraryFunc returns a Spotify [services.Library] acting for userID.
type LibraryFunc func(ctx context.Context, userID string) (services.Library, error)

// SyncResult summarizes a library sync.
type SyncResult struct {
	Fetched int // Saved tracks read from Spotify
	Added   int // Tracks newly queued as pending
}

// Curator implements the per-user review queue: login completion, library sync, next-track selection and swipes.
type Curator struct {
	spotify   *services.SpotifyService
	users     *repositories.UserRepository
	tokens    *repositories.TokenRepository
	tracks    *repositories.TrackRepository
	libraries LibraryFunc
	logger    *log.Logger
}

// NewCurator creates a [Curator] backed by db. Spotify clients are built from each user's stored token.
func NewCurator(db *sql.DB, spotify *services.SpotifyService, logger *log.Logger) *Curator {
	c := &Curator{
		spotify: spotify,
		users:   repositories.NewUserRepository(db),
		tokens:  repositories.NewTokenRepository(db),
		tracks:  repositories.NewTrackRepository(db),
		logger:  logger,
	}
	c.libraries = c.storedTokenLibrary
	return c
}

// WithLibraries replaces how Spotify clients are obtained.
func (c *Curator) WithLibraries(fn LibraryFunc) *Curator {
	c.libraries = fn
	return c
}

// sendProgress sends a progress update through the channel without blocking.
func (c *Curator) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// storedTokenLibrary builds a [services.SpotifyClient] from the user's stored token. Refreshed tokens are written back.
func (c *Curator) storedTokenLibrary(ctx context.Context, userID string) (services.Library, error) {
	if c.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	stored, err := c.tokens.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       stored.ExpiresAt,
	}

	return c.spotify.Client(ctx, token, func(t *oauth2.Token) error {
		c.logger.Debug("refreshed Spotify token", "user", userID, "expires", t.Expiry)
		return c.tokens.Save(ctx, tokenModel(userID, stored.Scope, t))
	}), nil
}

func tokenModel(userID, scope string, t *oauth2.Token) *models.SpotifyToken {
	if s, ok := t.Extra("scope").(string); ok && s != "" {
		scope = s
	}
	expiry := t.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(time.Hour)
	}
	return &models.SpotifyToken{
		UserID:       userID,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Scope:        scope,
		ExpiresAt:    expiry,
	}
}

// Login completes the authorization code flow: it exchanges code, loads the Spotify profile and stores the user and
// token pair.
//
// A token response without a refresh token is rejected, since the queue cannot operate once the access token expires.
func (c *Curator) Login(ctx context.Context, code, verifier string) (*models.User, error) {
	if c.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	token, err := c.spotify.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token returned from Spotify", shared.ErrAuthFailed)
	}

	profile, err := c.spotify.Client(ctx, token, nil).Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Spotify profile: %w", err)
	}

	user := profile.Model()
	if err := c.users.Upsert(ctx, &user); err != nil {
		return nil, err
	}

	if err := c.tokens.Save(ctx, tokenModel(user.ID, "", token)); err != nil {
		return nil, err
	}

	c.logger.Info("user logged in", "user", user.ID, "spotify_user", user.SpotifyUserID)
	return &user, nil
}

// User returns the stored user.
func (c *Curator) User(ctx context.Context, userID string) (*models.User, error) {
	return c.users.Get(ctx, userID)
}

// Sync reads the user's entire saved-track library page by page and queues unseen tracks as pending.
//
// Entries without a track id (local files, unavailable tracks) are skipped.
func (c *Curator) Sync(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*SyncResult, error) {
	library, err := c.libraries(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.sync(ctx, library, userID, progress)
}

func (c *Curator) sync(ctx context.Context, library services.Library, userID string, progress chan<- ProgressUpdate) (*SyncResult, error) {
	result := &SyncResult{}
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		page, err := library.SavedTracks(ctx, services.MaxPageSize, offset)
		if err != nil {
			return result, fmt.Errorf("failed to fetch saved tracks: %w", err)
		}
		if len(page.Items) == 0 {
			break
		}

		tracks := page.Tracks()

		offset += len(page.Items)
		result.Fetched += len(tracks)
		c.sendProgress(progress, fetchPageUpdate(offset, page.Total))

		added, err := c.tracks.SyncSaved(ctx, userID, tracks)
		if err != nil {
			return result, err
		}
		result.Added += added
		c.sendProgress(progress, storePageUpdate(offset, page.Total, added))

		if len(page.Items) < services.MaxPageSize {
			break
		}
	}

	c.logger.Info("library synced", "user", userID, "fetched", result.Fetched, "added", result.Added)
	c.sendProgress(progress, syncCompleteUpdate(result.Fetched, result.Added))
	return result, nil
}

// Next returns a random pending track for the user, or nil when nothing is left to review.
//
// An empty queue triggers a library sync before giving up. A missing preview URL is backfilled from the full track
// object on a best-effort basis.
func (c *Curator) Next(ctx context.Context, userID string) (*models.Track, error) {
	library, err := c.libraries(ctx, userID)
	if err != nil {
		return nil, err
	}

	track, err := c.tracks.NextPending(ctx, userID)
	if err != nil {
		return nil, err
	}

	if track == nil {
		if _, err := c.sync(ctx, library, userID, nil); err != nil {
			return nil, err
		}
		if track, err = c.tracks.NextPending(ctx, userID); err != nil {
			return nil, err
		}
	}

	if track == nil {
		return nil, nil
	}

	if track.PreviewURL == nil {
		c.backfillPreview(ctx, library, track)
	}
	return track, nil
}

func (c *Curator) backfillPreview(ctx context.Context, library services.Library, track *models.Track) {
	full, err := library.Track(ctx, track.SpotifyTrackID)
	if err != nil {
		c.logger.Debug("preview backfill failed", "track", track.SpotifyTrackID, "error", err)
		return
	}
	if full.PreviewURL == nil || *full.PreviewURL == "" {
		return
	}

	if err := c.tracks.SetPreviewURL(ctx, track.ID, *full.PreviewURL); err != nil {
		c.logger.Warn("failed to store preview url", "track", track.SpotifyTrackID, "error", err)
		return
	}
	preview := *full.PreviewURL
	track.PreviewURL = &preview
}

// Swipe records a keep or remove decision for one of the user's pending tracks.
//
// A remove first deletes the track from the Spotify library; if that call fails the track stays pending.
func (c *Curator) Swipe(ctx context.Context, userID, spotifyTrackID, action string) error {
	parsed, err := models.ParseAction(action)
	if err != nil {
		return shared.ErrInvalidAction
	}

	track, err := c.tracks.GetBySpotifyID(ctx, spotifyTrackID)
	if err != nil {
		return err
	}

	state, err := c.tracks.State(ctx, userID, track.ID)
	if errors.Is(err, shared.ErrTrackNotFound) {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotPending, spotifyTrackID)
	}
	if err != nil {
		return err
	}
	if state.State != models.StatePending {
		return fmt.Errorf("%w: %s is %s", shared.ErrTrackNotPending, spotifyTrackID, state.State)
	}

	if parsed == models.ActionRemove {
		library, err := c.libraries(ctx, userID)
		if err != nil {
			return err
		}
		if err := library.RemoveSavedTracks(ctx, spotifyTrackID); err != nil {
			return fmt.Errorf("failed to remove track from Spotify: %w", err)
		}
	}

	if err := c.tracks.Transition(ctx, userID, track.ID, models.StatePending, models.StateFor(parsed)); err != nil {
		return err
	}

	c.logger.Debug("swipe recorded", "user", userID, "track", spotifyTrackID, "action", parsed)
	return nil
}

// Saved returns one page of the user's Spotify library without touching the review queue.
func (c *Curator) Saved(ctx context.Context, userID string, limit, offset int) (*services.SavedTracksPage, error) {
	library, err := c.libraries(ctx, userID)
	if err != nil {
		return nil, err
	}
	return library.SavedTracks(ctx, limit, offset)
}

// Stats counts the user's tracks by review state.
func (c *Curator) Stats(ctx context.Context, userID string) (models.Stats, error) {
	return c.tracks.Stats(ctx, userID)
}
