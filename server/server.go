// Package server is the HTTP boundary: it decodes requests, calls the auth
// flows and engines, and maps their errors onto status codes and cookies.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-sso-server/auth"
	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/internal/metrics"
	"github.com/jrsteele09/go-sso-server/users"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether the datastore is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Auth    *auth.AuthenticationService
	Engines auth.Engines
	Users   users.UserRepo
	DB      Pinger
	Metrics http.Handler
}

type Server struct {
	env     string
	router  chi.Router
	config  config.Config
	auth    *auth.AuthenticationService
	engines auth.Engines
	users   users.UserRepo
	db      Pinger
	metrics http.Handler
	limiter *ipLimiter
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if deps.Auth == nil {
		return nil, errors.New("[Server New] authentication service is required")
	}
	if deps.Engines.Issuer == nil || deps.Engines.Refresh == nil || deps.Engines.SSO == nil ||
		deps.Engines.Apps == nil || deps.Engines.OTP == nil {
		return nil, errors.New("[Server New] engines are required")
	}
	if deps.Users == nil {
		return nil, errors.New("[Server New] users repo is required")
	}

	s := &Server{
		env:     cfg.GetEnv(),
		config:  cfg,
		auth:    deps.Auth,
		engines: deps.Engines,
		users:   deps.Users,
		db:      deps.DB,
		metrics: deps.Metrics,
		limiter: newIPLimiter(cfg.GetRateLimitPerMinute()),
	}
	if s.metrics == nil {
		h, err := metrics.Register(nil)
		if err != nil {
			return nil, fmt.Errorf("[Server New] metrics: %w", err)
		}
		s.metrics = h
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on the configured port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.GetPort(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server.ListenAndServe: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	_ = chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		log.Debug().Str("method", method).Str("route", route).Msg("route registered")
		return nil
	})
}
