// Package models defines domain entities and persistence interfaces for the cur8 review service.
//
// The package contains two categories of types:
//
// 1. Wire types shared by the backend handlers and the terminal client:
//   - [User] : The authenticated Spotify account
//   - [Track] : Saved track metadata shown on a card
//   - [Action] : A keep/remove swipe decision
//   - [Stats] : Review progress counts
//
// 2. Persistent entities owned by the backend:
//   - [SpotifyToken] : OAuth token pair per user
//   - [TrackState] : Per-user review state (pending, kept, removed)
//   - [Session] : Server-side login session
//   - [PKCEState] : Verifier stored between /auth/login and /auth/callback
package models
