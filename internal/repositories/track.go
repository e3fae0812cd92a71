package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/shared"
)

// TrackRepository persists shared [models.Track] metadata and each user's review queue.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

const trackColumns = `t.id, t.spotify_track_id, t.name, t.artists, t.album_name, t.artwork_url, t.preview_url, t.duration_ms, t.created_at, t.updated_at`

// SyncSaved upserts tracks and enqueues each one as pending for userID unless the user already has a state for it.
//
// Existing metadata is refreshed, except that a known preview_url is never replaced by null.
// Returns the number of tracks newly enqueued.
func (r *TrackRepository) SyncSaved(ctx context.Context, userID string, tracks []models.Track) (int, error) {
	added := 0

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for i := range tracks {
			id, err := upsertTrack(ctx, tx, &tracks[i])
			if err != nil {
				return err
			}

			result, err := tx.ExecContext(ctx, `
				INSERT INTO user_track_states (user_id, track_id, state, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(user_id, track_id) DO NOTHING
			`, userID, id, models.StatePending, now())
			if err != nil {
				return fmt.Errorf("failed to enqueue track %s: %w", tracks[i].SpotifyTrackID, err)
			}

			if n, err := result.RowsAffected(); err == nil {
				added += int(n)
			}
		}
		return nil
	})

	return added, err
}

func upsertTrack(ctx context.Context, db execer, track *models.Track) (string, error) {
	if err := track.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	ts := now()
	query := `
		INSERT INTO tracks (id, spotify_track_id, name, artists, album_name, artwork_url, preview_url, duration_ms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(spotify_track_id) DO UPDATE SET
			name = excluded.name,
			artists = excluded.artists,
			album_name = excluded.album_name,
			artwork_url = excluded.artwork_url,
			preview_url = COALESCE(excluded.preview_url, tracks.preview_url),
			duration_ms = excluded.duration_ms,
			updated_at = excluded.updated_at
	`

	_, err := db.ExecContext(ctx, query,
		shared.GenerateID(),
		track.SpotifyTrackID,
		track.Name,
		nullString(track.Artists),
		nullString(track.AlbumName),
		nullString(track.ArtworkURL),
		nullString(track.PreviewURL),
		nullInt(track.DurationMS),
		ts,
		ts,
	)
	if err != nil {
		return "", fmt.Errorf("failed to upsert track %s: %w", track.SpotifyTrackID, err)
	}

	var id string
	if err := db.QueryRowContext(ctx, `SELECT id FROM tracks WHERE spotify_track_id = ?`, track.SpotifyTrackID).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to read track id: %w", err)
	}
	track.ID = id
	return id, nil
}

// Upsert inserts or refreshes a single track and sets its ID.
func (r *TrackRepository) Upsert(ctx context.Context, track *models.Track) error {
	_, err := upsertTrack(ctx, r.db, track)
	return err
}

// GetBySpotifyID retrieves a track by its Spotify id.
func (r *TrackRepository) GetBySpotifyID(ctx context.Context, spotifyTrackID string) (*models.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks t WHERE t.spotify_track_id = ?`
	track, err := scanTrack(r.db.QueryRowContext(ctx, query, spotifyTrackID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, spotifyTrackID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track: %w", err)
	}
	return track, nil
}

// NextPending returns a random pending track for userID, or nil when the queue is empty.
func (r *TrackRepository) NextPending(ctx context.Context, userID string) (*models.Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM tracks t
		JOIN user_track_states s ON s.track_id = t.id AND s.user_id = ?
		WHERE s.state = ?
		ORDER BY RANDOM()
		LIMIT 1
	`

	track, err := scanTrack(r.db.QueryRowContext(ctx, query, userID, models.StatePending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query next track: %w", err)
	}
	return track, nil
}

// SetPreviewURL backfills the preview URL of a track.
func (r *TrackRepository) SetPreviewURL(ctx context.Context, trackID, previewURL string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tracks SET preview_url = ?, updated_at = ? WHERE id = ?`, previewURL, now(), trackID,
	)
	if err != nil {
		return fmt.Errorf("failed to update preview url: %w", err)
	}
	return affected(result, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID))
}

// State returns userID's review state for trackID.
func (r *TrackRepository) State(ctx context.Context, userID, trackID string) (*models.TrackState, error) {
	query := `
		SELECT user_id, track_id, state, updated_at
		FROM user_track_states
		WHERE user_id = ? AND track_id = ?
	`

	var s models.TrackState
	err := r.db.QueryRowContext(ctx, query, userID, trackID).Scan(&s.UserID, &s.TrackID, &s.State, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no state for track %s", shared.ErrTrackNotFound, trackID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track state: %w", err)
	}
	return &s, nil
}

// Transition moves userID's state for trackID from one state to another.
//
// The update is conditional on the current state so two concurrent swipes on the same track cannot both succeed;
// the loser gets [shared.ErrTrackNotPending].
func (r *TrackRepository) Transition(ctx context.Context, userID, trackID string, from, to models.State) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE user_track_states
		SET state = ?, updated_at = ?
		WHERE user_id = ? AND track_id = ? AND state = ?
	`, to, now(), userID, trackID, from)
	if err != nil {
		return fmt.Errorf("failed to update track state: %w", err)
	}
	return affected(result, shared.ErrTrackNotPending)
}

// Stats counts userID's tracks by review state.
func (r *TrackRepository) Stats(ctx context.Context, userID string) (models.Stats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT state, COUNT(*)
		FROM user_track_states
		WHERE user_id = ?
		GROUP BY state
	`, userID)
	if err != nil {
		return models.Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var stats models.Stats
	for rows.Next() {
		var (
			state models.State
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return models.Stats{}, fmt.Errorf("failed to scan stats: %w", err)
		}
		switch state {
		case models.StatePending:
			stats.Pending = count
		case models.StateKept:
			stats.Kept = count
		case models.StateRemoved:
			stats.Removed = count
		}
	}

	if err := rows.Err(); err != nil {
		return models.Stats{}, fmt.Errorf("row iteration error: %w", err)
	}
	return stats, nil
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var (
		track      models.Track
		artists    sql.NullString
		albumName  sql.NullString
		artworkURL sql.NullString
		previewURL sql.NullString
		durationMS sql.NullInt64
	)

	err := row.Scan(
		&track.ID,
		&track.SpotifyTrackID,
		&track.Name,
		&artists,
		&albumName,
		&artworkURL,
		&previewURL,
		&durationMS,
		&track.CreatedAt,
		&track.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	track.Artists = stringPtr(artists)
	track.AlbumName = stringPtr(albumName)
	track.ArtworkURL = stringPtr(artworkURL)
	track.PreviewURL = stringPtr(previewURL)
	track.DurationMS = intPtr(durationMS)
	return &track, nil
}
