// Package repositories implements SQLite persistence for all domain entities.
//
// Key Implementations:
//   - [UserRepository] : Spotify accounts keyed by spotify_user_id
//   - [TokenRepository] : One OAuth token pair per user, replaced on login and refresh
//   - [TrackRepository] : Shared track metadata plus the per-user review queue (user_track_states)
//   - [SessionRepository] : Server-side sessions referenced by the signed session cookie
//   - [PKCERepository] : One-time PKCE verifiers keyed by OAuth state
//
// Timestamps are written in UTC. Lookups that miss return the matching sentinel from the shared package
// ([shared.ErrUserNotFound], [shared.ErrTrackNotFound], [shared.ErrInvalidSession], [shared.ErrInvalidState]) so
// handlers can map them with errors.Is.
package repositories
