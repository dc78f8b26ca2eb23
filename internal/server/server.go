// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and routes,
// and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and the logger, then server.New creates:
//
//	store (sqlite | postgres) ─┐
//	instagram.Client ──────────┼→ AuthService → AuthHandler
//	StateSigner + Sealer ──────┘             ↘ jobs.Scheduler
//
// This is the "composition root" pattern: all dependencies are wired
// in one place (New/routes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sakif/catchme/internal/auth"
	"github.com/sakif/catchme/internal/config"
	"github.com/sakif/catchme/internal/handler"
	"github.com/sakif/catchme/internal/instagram"
	"github.com/sakif/catchme/internal/jobs"
	"github.com/sakif/catchme/internal/logger"
	"github.com/sakif/catchme/internal/middleware"
	"github.com/sakif/catchme/internal/repository"
	"github.com/sakif/catchme/internal/repository/postgres"
	"github.com/sakif/catchme/internal/repository/sqlite"
	"github.com/sakif/catchme/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database store and the job scheduler. Start stops the
// scheduler and closes the store during graceful shutdown.
type Server struct {
	router    *chi.Mux
	config    *config.Config
	logger    *logger.Logger
	store     repository.Store
	scheduler *jobs.Scheduler
}

// New creates a Server from validated configuration.
//
// WIRING:
//  1. Open the configured store (migrations run here)
//  2. Derive the state-signing and token-sealing keys from APP_SECRET
//  3. Build the Instagram client and the auth service
//  4. Register the maintenance jobs
//  5. Wire handlers to routes
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Server, error) {
	// === OPEN STORAGE ===
	store, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	// === AUTH PRIMITIVES ===
	states, err := auth.NewStateSigner(auth.DeriveKey(cfg.Secret, auth.InfoStateSigning))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating state signer: %w", err)
	}
	sealer, err := auth.NewSealer(auth.DeriveKey(cfg.Secret, auth.InfoTokenSealing))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating token sealer: %w", err)
	}

	// === SERVICES ===
	svc := service.NewAuthService(
		instagram.NewClient(cfg.Instagram),
		store,
		states,
		sealer,
		log,
		service.AuthOptions{SessionTTL: cfg.SessionTTL},
	)

	// === JOBS ===
	scheduler := jobs.NewScheduler(log)
	if err := jobs.Register(scheduler, svc, cfg.Jobs, log); err != nil {
		store.Close()
		return nil, err
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    log,
		store:     store,
		scheduler: scheduler,
	}
	s.routes(svc)

	return s, nil
}

// openStore picks the storage backend named by DB_DRIVER.
func openStore(ctx context.Context, cfg config.Database, log *logger.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.DSN, log)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := postgres.Open(ctx, cfg.DSN, log)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// routes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET      /healthz        → database ping
// GET      /auth/start     → set CSRF cookie, redirect to Instagram
// GET      /auth/callback  → finish login, set session cookie
// GET|POST /auth/logout    → end session, disconnect Instagram
// GET      /api/me         → current identity (JSON, auth required)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: request-scoped logger carrying the request ID, plus a completion line
// 4. Recoverer: catches panics and returns 500 instead of crashing
//
// CORS only applies under /api, where the site's frontend calls with
// credentials. The /auth routes are top-level browser navigations.
func (s *Server) routes(svc *service.AuthService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	health := handler.NewHealthHandler(s.store)
	authHandler := handler.NewAuthHandler(svc, handler.AuthHandlerOptions{
		CookieSecure:      s.config.CookieSecure,
		DefaultReturnPath: s.config.DefaultReturnPath,
	})

	s.router.Get("/healthz", health.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/start", authHandler.HandleStart)
		r.Get("/callback", authHandler.HandleCallback)
		r.Get("/logout", authHandler.HandleLogout)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   []string{s.config.SiteBaseURL},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowCredentials: true,
		}).Handler)
		r.Use(auth.RequireAuth(svc))

		r.Get("/me", authHandler.HandleMe)
	})
}

// Handler exposes the router, e.g. for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store. Start calls it on shutdown; callers that never
// start the server (tests) call it themselves.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start starts the HTTP server and the job scheduler, then blocks until
// SIGINT/SIGTERM or a listener error.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Stop the scheduler and wait for a running job
// 4. Close the database (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // the callback makes three provider calls
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	s.scheduler.Start()

	go func() {
		s.logger.Info().
			Int("port", s.config.Port).
			Str("site", s.config.SiteBaseURL).
			Str("database", s.config.Database.Driver).
			Msg("server starting")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = s.scheduler.Stop(context.Background())
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("scheduler did not stop in time")
		}
		s.logger.Info().Msg("server stopped gracefully")
	}

	return nil
}
