// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where the whole
// dependency chain is assembled:
//
//	sqlite.DB → services (auth, user, track, stats) → handlers → routes
//
// Each layer only receives what it needs: services get the
// repository.UnitOfWork interface (not the concrete sqlite.DB), handlers get
// services, and main.go stays minimal.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/studenthub/backend/internal/auth"
	"github.com/studenthub/backend/internal/handler"
	"github.com/studenthub/backend/internal/middleware"
	"github.com/studenthub/backend/internal/model"
	sqliteRepo "github.com/studenthub/backend/internal/repository/sqlite"
	"github.com/studenthub/backend/internal/service"
)

// Config holds server configuration, loaded from the environment in main.go.
type Config struct {
	Port               int
	DBPath             string
	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown so the WAL is flushed and the file lock
// released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server: opens the database, seeds the track catalog,
// reconciles the global stats cache against the source tables, and wires all
// routes. A configuration or storage failure here returns an error — the
// process must not accept traffic half-initialized.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.SeedTracks(ctx, model.DefaultCatalog); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding track catalog: %w", err)
	}

	if err := s.setupRoutes(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires middleware, services, handlers, and routes.
//
// MIDDLEWARE ORDER MATTERS — it executes in the order added:
// RequestID (tracing) → RealIP (proxy headers) → Recoverer (panic → 500)
// → request logging.
func (s *Server) setupRoutes(ctx context.Context) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	github := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)

	authService := service.NewAuthService(s.db, tokens, s.logger)
	userService := service.NewUserService(s.db, s.logger)
	trackService := service.NewTrackService(s.db, s.logger)
	statsService := service.NewStatsService(s.db, s.logger)

	// The global counters are maintained transactionally with every write,
	// but a fresh deploy over an existing database may predate some counter.
	// Rebuild once from source before serving.
	if err := statsService.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconciling global stats: %w", err)
	}

	authHandler := handler.NewAuthHandler(github, authService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	trackHandler := handler.NewTrackHandler(trackService, s.logger)
	statsHandler := handler.NewStatsHandler(statsService, s.logger)

	// OAuth endpoints cost an external round trip each — keep bursts out.
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rate.Limit(1), 5))
		r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	})
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	s.router.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/stats", statsHandler.HandleOverview)
		r.Get("/activities", trackHandler.HandleActivities)
		r.Get("/users", userHandler.HandleUsers)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)
			r.Get("/dashboard", userHandler.HandleDashboard)
			r.Post("/onboarding", userHandler.HandleOnboarding)
			r.Post("/confetti-seen", userHandler.HandleConfettiSeen)
			r.Put("/benefits/{productId}", userHandler.HandleBenefit)

			r.Get("/tracks", trackHandler.HandleList)
			r.Post("/tracks/{id}/start", trackHandler.HandleStart)
			r.Post("/tracks/{id}/complete", trackHandler.HandleComplete)
			r.Delete("/tracks/{id}", trackHandler.HandleRemove)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown:
// stop accepting connections, wait for in-flight requests (30s budget), then
// close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
