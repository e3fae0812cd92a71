package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/shared"
)

const (
	SessionTTL = 7 * 24 * time.Hour
	PKCETTL    = 10 * time.Minute
)

// SessionRepository persists server-side login sessions.
type SessionRepository struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSessionRepository creates a [SessionRepository] issuing sessions valid for [SessionTTL].
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, ttl: SessionTTL}
}

// Create starts a new session for userID with a random URL-safe id.
func (r *SessionRepository) Create(ctx context.Context, userID string) (*models.Session, error) {
	id, err := shared.GenerateToken(32)
	if err != nil {
		return nil, err
	}

	created := now()
	session := &models.Session{ID: id, UserID: userID, CreatedAt: created, ExpiresAt: created.Add(r.ttl)}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Get returns the live session with id, or [shared.ErrInvalidSession] if it is unknown or expired.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, shared.ErrInvalidSession
	}

	var s models.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if s.Expired(now()) {
		return nil, shared.ErrInvalidSession
	}
	return &s, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions that expired before at.
func (r *SessionRepository) DeleteExpired(ctx context.Context, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// PKCERepository stores PKCE code verifiers between the authorize redirect and the callback.
type PKCERepository struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPKCERepository creates a [PKCERepository] whose entries live for [PKCETTL].
func NewPKCERepository(db *sql.DB) *PKCERepository {
	return &PKCERepository{db: db, ttl: PKCETTL}
}

// Save stores verifier (and the optional loopback return_to URL) under state.
func (r *PKCERepository) Save(ctx context.Context, state, verifier, returnTo string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pkce_states (state, verifier, return_to, expires_at) VALUES (?, ?, ?, ?)`,
		state, verifier, returnTo, now().Add(r.ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to save pkce state: %w", err)
	}
	return nil
}

// Pop returns and deletes the entry for state. A state can be popped once; unknown or expired states return
// [shared.ErrInvalidState].
func (r *PKCERepository) Pop(ctx context.Context, state string) (*models.PKCEState, error) {
	var p models.PKCEState

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT state, verifier, return_to, expires_at FROM pkce_states WHERE state = ?`, state,
		).Scan(&p.State, &p.Verifier, &p.ReturnTo, &p.ExpiresAt)
		if errors.Is(err, sql.ErrNoRows) {
			return shared.ErrInvalidState
		}
		if err != nil {
			return fmt.Errorf("failed to query pkce state: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM pkce_states WHERE state = ?`, state); err != nil {
			return fmt.Errorf("failed to delete pkce state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !now().Before(p.ExpiresAt) {
		return nil, shared.ErrInvalidState
	}
	return &p, nil
}

// DeleteExpired purges verifiers whose login was never completed.
func (r *PKCERepository) DeleteExpired(ctx context.Context, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pkce_states WHERE expires_at <= ?`, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired pkce states: %w", err)
	}
	return result.RowsAffected()
}
