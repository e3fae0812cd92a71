package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/shared"
)

// TokenRepository persists one [models.SpotifyToken] per user.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save inserts or replaces the user's token pair.
func (r *TokenRepository) Save(ctx context.Context, token *models.SpotifyToken) error {
	if err := token.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	token.UpdatedAt = now()
	query := `
		INSERT INTO spotify_tokens (user_id, access_token, refresh_token, scope, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			scope = excluded.scope,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		token.UserID, token.AccessToken, token.RefreshToken, token.Scope, token.ExpiresAt.UTC(), token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Get returns the token pair for userID, or [shared.ErrNoRefreshToken] when the user never completed a login.
func (r *TokenRepository) Get(ctx context.Context, userID string) (*models.SpotifyToken, error) {
	query := `
		SELECT user_id, access_token, refresh_token, scope, expires_at, updated_at
		FROM spotify_tokens
		WHERE user_id = ?
	`

	var t models.SpotifyToken
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&t.UserID, &t.AccessToken, &t.RefreshToken, &t.Scope, &t.ExpiresAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no Spotify token for user %s", shared.ErrNoRefreshToken, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}
	return &t, nil
}
