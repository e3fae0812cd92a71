// Package server implements the cur8 backend HTTP API and the loopback receiver used by terminal logins.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering. [Chain] composes per-route
// middleware such as [Server.RequireSession] and [Server.RateLimit].
//
// # Backend
//
// [Server] serves JSON under /auth and /tracks. Errors are written as {"detail": "..."}; shared sentinel errors are
// mapped onto status codes with errors.Is (401, 400, 404, 429, 502).
//
// Sessions live in SQLite. The cur8_session cookie carries the session id signed with
// [github.com/gorilla/securecookie]. Routes that call Spotify are limited per user by a token bucket
// (burst 30, refilling one token every two seconds).
//
// [Server.Run] runs the HTTP server next to a cleanup job that purges expired sessions and PKCE states.
//
// # Terminal login
//
// A browser login started from the terminal passes a loopback return_to URL to /auth/login. After the callback the
// backend redirects there with the signed session appended, and [LoopbackHandler] hands it to the waiting CLI. It
// only processes one request.
package server
