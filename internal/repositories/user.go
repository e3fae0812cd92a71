package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/shared"
)

// UserRepository persists [models.User] rows.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, spotify_user_id, display_name, avatar_url, created_at, updated_at`

// Upsert inserts the user or refreshes the profile fields of the existing row with the same spotify_user_id.
//
// The user's ID is set from the stored row.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ts := now()
	query := `
		INSERT INTO users (id, spotify_user_id, display_name, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(spotify_user_id) DO UPDATE SET
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		shared.GenerateID(), user.SpotifyUserID, nullString(user.DisplayName), nullString(user.AvatarURL), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	stored, err := r.GetBySpotifyID(ctx, user.SpotifyUserID)
	if err != nil {
		return err
	}

	*user = *stored
	return nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// GetBySpotifyID retrieves a user by their Spotify account id.
func (r *UserRepository) GetBySpotifyID(ctx context.Context, spotifyUserID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE spotify_user_id = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, spotifyUserID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, spotifyUserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// Delete removes a user; tokens, sessions and review states cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return affected(result, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id))
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user        models.User
		displayName sql.NullString
		avatarURL   sql.NullString
	)

	if err := row.Scan(&user.ID, &user.SpotifyUserID, &displayName, &avatarURL, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}

	user.DisplayName = stringPtr(displayName)
	user.AvatarURL = stringPtr(avatarURL)
	return &user, nil
}
