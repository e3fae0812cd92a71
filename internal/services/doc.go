// Package services wraps the HTTP APIs cur8 talks to.
//
// # Spotify
//
// [SpotifyService] owns the OAuth2 configuration for the Spotify accounts service. cur8 is registered as a public
// client, so the authorization code flow uses PKCE (S256) with no client secret. [SpotifyService.Client] returns a
// [SpotifyClient] bound to one user's token: the access token is refreshed 60 seconds before it expires and each new
// token is handed to a callback so it can be persisted.
//
// [SpotifyClient] implements [Library]: the profile, saved-tracks and single-track endpoints of the Web API.
//
// # cur8 backend
//
// [APIClient] is the typed client used by the terminal commands. It attaches the session cookie, decodes JSON
// bodies, treats 204 as an empty result and turns error responses into [APIError] values carrying the backend's
// "detail" message.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrTokenExpired] : Spotify rejected the access token (401)
//   - [shared.ErrRefreshFailed] : the refresh token was rejected
//   - [shared.ErrRateLimited] : a 429 from either API
//   - [shared.ErrNotAuthenticated] : the backend rejected the session (401)
//   - [shared.ErrAPIRequest] : any other failed request
package services
