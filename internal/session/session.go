// Package session tracks who is logged in to the cur8 backend from the terminal.
//
// [Holder] owns the current user and the signed session value. [Holder.Check] validates a saved session,
// [Holder.Login] runs a browser login that hands the session back over a loopback redirect, and [Holder.Logout]
// ends it. [Holder.Screen] tells the UI which screen may be shown.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/server"
	"github.com/desertthunder/cur8/internal/services"
	"github.com/desertthunder/cur8/internal/shared"
)

// LoginTimeout bounds how long [Holder.Login] waits for the browser.
const LoginTimeout = 2 * time.Minute

// Backend is the part of the cur8 API the holder needs. [services.APIClient] implements it.
type Backend interface {
	Me(ctx context.Context) (*models.User, error)
	LoginURL(ctx context.Context, returnTo string) (string, error)
	Logout(ctx context.Context) error
	SetSession(session string)
	Session() string
}

// Screen is the view reachable for the current auth state.
type Screen int

const (
	ScreenChecking Screen = iota
	ScreenLogin
	ScreenSwipe
)

func (s Screen) String() string {
	switch s {
	case ScreenLogin:
		return "login"
	case ScreenSwipe:
		return "swipe"
	default:
		return "checking"
	}
}

// Holder is the process-wide auth state. It is safe for concurrent use.
type Holder struct {
	api          Backend
	store        *Store
	callbackAddr string
	timeout      time.Duration
	open         func(string) error
	prompt       func(authURL string, openErr error)
	logger       *log.Logger

	mu      sync.RWMutex
	user    *models.User
	checked bool
}

// NewHolder creates a holder and restores any saved session into api.
func NewHolder(api Backend, store *Store, callbackAddr string, logger *log.Logger) *Holder {
	h := &Holder{
		api:          api,
		store:        store,
		callbackAddr: callbackAddr,
		timeout:      LoginTimeout,
		open:         shared.OpenBrowser,
		prompt:       func(string, error) {},
		logger:       logger,
	}

	if saved, err := store.Load(); err != nil {
		logger.Warn("failed to load saved session", "error", err)
	} else if saved != "" {
		api.SetSession(saved)
	}
	return h
}

// WithOpener replaces the function used to open the authorize URL.
func (h *Holder) WithOpener(open func(string) error) *Holder {
	h.open = open
	return h
}

// WithPrompt sets a callback told about the authorize URL and whether opening the browser failed.
func (h *Holder) WithPrompt(prompt func(authURL string, openErr error)) *Holder {
	h.prompt = prompt
	return h
}

// WithTimeout changes how long Login waits for the browser.
func (h *Holder) WithTimeout(d time.Duration) *Holder {
	h.timeout = d
	return h
}

// User returns the logged-in user or nil.
func (h *Holder) User() *models.User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user
}

// Authenticated reports whether a user is logged in.
func (h *Holder) Authenticated() bool {
	return h.User() != nil
}

// Screen is [ScreenChecking] until the first check completes, then [ScreenSwipe] or [ScreenLogin].
func (h *Holder) Screen() Screen {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch {
	case !h.checked:
		return ScreenChecking
	case h.user != nil:
		return ScreenSwipe
	default:
		return ScreenLogin
	}
}

func (h *Holder) setUser(user *models.User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.user = user
	h.checked = true
}

// Check asks the backend who the session belongs to.
//
// Any failure clears the user. A rejected session is also forgotten on disk.
func (h *Holder) Check(ctx context.Context) (*models.User, error) {
	if h.api.Session() == "" {
		h.setUser(nil)
		return nil, shared.ErrNotAuthenticated
	}

	user, err := h.api.Me(ctx)
	if err != nil {
		h.setUser(nil)
		if services.IsUnauthorized(err) {
			h.forget()
			return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
		}
		return nil, err
	}

	h.setUser(user)
	return user, nil
}

// Login opens the Spotify consent page in a browser and waits for the backend to redirect the session to a
// loopback listener. The session is saved and verified with [Holder.Check].
func (h *Holder) Login(ctx context.Context) (*models.User, error) {
	nonce, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	listener, err := net.Listen("tcp", h.callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", h.callbackAddr, err)
	}

	handler := server.NewLoopbackHandler(nonce)
	router := server.NewBasicRouter()
	router.Handler(handler)

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		h.logger.Infof("waiting for login callback at %v", listener.Addr())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			h.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	returnTo := url.URL{
		Scheme:   "http",
		Host:     listener.Addr().String(),
		Path:     handler.Routes()[0],
		RawQuery: url.Values{"nonce": {nonce}}.Encode(),
	}

	authURL, err := h.api.LoginURL(ctx, returnTo.String())
	if err != nil {
		return nil, err
	}

	openErr := h.open(authURL)
	if openErr != nil {
		h.logger.Warnf("failed to open browser automatically %v", openErr)
	}
	h.prompt(authURL, openErr)

	timeout := time.NewTimer(h.timeout)
	defer timeout.Stop()

	var result server.LoopbackResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: login timed out after %v", shared.ErrTimeout, h.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("login failed: %w", result.Error())
	}

	h.api.SetSession(result.Session)
	if err := h.store.Save(result.Session); err != nil {
		h.logger.Warn("failed to save session", "error", err)
	}

	return h.Check(ctx)
}

// Logout ends the session on the backend and forgets it locally. The local state is cleared even when the backend
// call fails.
func (h *Holder) Logout(ctx context.Context) error {
	err := h.api.Logout(ctx)
	h.forget()
	h.setUser(nil)

	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (h *Holder) forget() {
	h.api.SetSession("")
	if err := h.store.Clear(); err != nil {
		h.logger.Warn("failed to clear session file", "error", err)
	}
}
