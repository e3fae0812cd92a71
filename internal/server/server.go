package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cur8/internal/repositories"
	"github.com/desertthunder/cur8/internal/services"
	"github.com/desertthunder/cur8/internal/shared"
	"github.com/desertthunder/cur8/internal/tasks"
	"golang.org/x/sync/errgroup"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows the path patterns it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// CleanupInterval is how often expired sessions, PKCE states and idle rate limit buckets are purged.
const CleanupInterval = 10 * time.Minute

// Server is the cur8 backend.
type Server struct {
	config   *shared.Config
	db       *sql.DB
	spotify  *services.SpotifyService
	curator  *tasks.Curator
	sessions *repositories.SessionRepository
	pkce     *repositories.PKCERepository
	cookies  *SessionCodec
	limiter  *RateLimiter
	router   *BasicRouter
	logger   *log.Logger
}

// New wires the backend. config must pass [shared.Config.Validate].
func New(config *shared.Config, db *sql.DB, spotify *services.SpotifyService, logger *log.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		config:   config,
		db:       db,
		spotify:  spotify,
		curator:  tasks.NewCurator(db, spotify, logger),
		sessions: repositories.NewSessionRepository(db),
		pkce:     repositories.NewPKCERepository(db),
		cookies:  NewSessionCodec(config.Server.SessionSecret, config.Server.IsProduction()),
		limiter:  NewRateLimiter(RateLimitRefill, RateLimitBurst),
		router:   NewBasicRouter(),
		logger:   logger,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(Logging(s.logger), CORS(s.config.Server.Origins()))

	r.Handle(http.MethodGet, "/health", http.HandlerFunc(s.health))

	r.Handle(http.MethodGet, "/auth/redirect-uri", http.HandlerFunc(s.redirectURI))
	r.Handle(http.MethodGet, "/auth/login", http.HandlerFunc(s.login))
	r.Handle(http.MethodGet, "/auth/callback", http.HandlerFunc(s.callback))
	r.Handle(http.MethodGet, "/auth/me", Chain(http.HandlerFunc(s.me), s.RequireSession))
	r.Handle(http.MethodPost, "/auth/logout", http.HandlerFunc(s.logout))

	r.Handle(http.MethodGet, "/tracks/next", Chain(http.HandlerFunc(s.nextTrack), s.RequireSession, s.RateLimit))
	r.Handle(http.MethodPost, "/tracks/swipe", Chain(http.HandlerFunc(s.swipe), s.RequireSession, s.RateLimit))
	r.Handle(http.MethodGet, "/tracks/saved", Chain(http.HandlerFunc(s.saved), s.RequireSession, s.RateLimit))
	r.Handle(http.MethodGet, "/tracks/stats", Chain(http.HandlerFunc(s.stats), s.RequireSession))

	r.mux.Handle("/", r.Apply(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})))
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves HTTP on the configured address and runs the cleanup job until ctx is cancelled or a job fails.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("starting job 'http'", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		s.logger.Info("starting job 'session clean'", "interval", CleanupInterval)
		ticker := time.NewTicker(CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.Cleanup(gctx)
			}
		}
	})

	return g.Wait()
}

// Cleanup purges expired sessions and PKCE states and drops idle rate limit buckets.
func (s *Server) Cleanup(ctx context.Context) {
	now := time.Now()

	sessions, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("error purging sessions", "error", err)
	}

	states, err := s.pkce.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("error purging pkce states", "error", err)
	}

	limiters := s.limiter.Prune(limiterIdleTTL)
	s.logger.Debug("cleanup", "sessions", sessions, "pkce_states", states, "limiters", limiters)
}
