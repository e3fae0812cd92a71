package server

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/cur8/internal/repositories"
	"github.com/desertthunder/cur8/internal/services"
	"github.com/desertthunder/cur8/internal/shared"
	"github.com/gorilla/securecookie"
)

// SessionCodec signs session ids into the cur8_session cookie value and builds the cookie itself.
type SessionCodec struct {
	codec      *securecookie.SecureCookie
	production bool
}

// NewSessionCodec creates a codec keyed by secret. Production cookies are SameSite=None and Secure so a frontend on
// another origin can send them; otherwise they are SameSite=Lax.
func NewSessionCodec(secret string, production bool) *SessionCodec {
	codec := securecookie.New([]byte(secret), nil)
	codec.MaxAge(int(repositories.SessionTTL.Seconds()))

	return &SessionCodec{codec: codec, production: production}
}

// Encode signs a session id.
func (c *SessionCodec) Encode(sessionID string) (string, error) {
	value, err := c.codec.Encode(services.SessionCookie, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to encode session cookie: %w", err)
	}
	return value, nil
}

// Decode verifies a signed value and returns the session id, or [shared.ErrInvalidSession].
func (c *SessionCodec) Decode(value string) (string, error) {
	var sessionID string
	if err := c.codec.Decode(services.SessionCookie, value, &sessionID); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidSession, err)
	}
	return sessionID, nil
}

// FromRequest returns the session id carried by the request's cookie.
func (c *SessionCodec) FromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(services.SessionCookie)
	if err != nil {
		return "", shared.ErrNotAuthenticated
	}
	return c.Decode(cookie.Value)
}

// Cookie builds the session cookie for a signed value.
func (c *SessionCodec) Cookie(value string) *http.Cookie {
	cookie := c.base()
	cookie.Value = value
	cookie.MaxAge = int(repositories.SessionTTL.Seconds())
	return cookie
}

// Clear builds a cookie that deletes the session cookie.
func (c *SessionCodec) Clear() *http.Cookie {
	cookie := c.base()
	cookie.MaxAge = -1
	return cookie
}

func (c *SessionCodec) base() *http.Cookie {
	cookie := &http.Cookie{
		Name:     services.SessionCookie,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if c.production {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
	}
	return cookie
}
