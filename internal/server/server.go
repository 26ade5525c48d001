// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects stores, clients, services,
// handlers and middleware, and decides which URL maps to which handler.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Settings → New() builds:
//	  store (postgres or sqlite) → services → handlers
//	  anon + service-role auth clients → auth.Resolver → RequireAuth
//	  email.Dispatcher → NotificationService
//
// This is the "composition root" pattern: every dependency is constructed
// here, once, and injected. No package keeps a global client.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/auth"
	"github.com/sakif/mos-mood/internal/config"
	"github.com/sakif/mos-mood/internal/email"
	"github.com/sakif/mos-mood/internal/handler"
	"github.com/sakif/mos-mood/internal/middleware"
	"github.com/sakif/mos-mood/internal/repository"
	postgresRepo "github.com/sakif/mos-mood/internal/repository/postgres"
	sqliteRepo "github.com/sakif/mos-mood/internal/repository/sqlite"
	"github.com/sakif/mos-mood/internal/service"
	"github.com/sakif/mos-mood/internal/supabase"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. Start closes it after graceful shutdown; callers
// that only use Handler (tests) call Close themselves.
type Server struct {
	router *chi.Mux
	cfg    config.Settings
	logger *slog.Logger
	store  repository.Store
}

type options struct {
	store      repository.Store
	sender     email.Sender
	httpClient *http.Client
}

// Option overrides a dependency New would otherwise build from the settings.
type Option func(*options)

// WithStore uses store instead of opening DATABASE_URL or DB_PATH. The
// Server takes ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(o *options) { o.store = store }
}

// WithEmailSender replaces the Resend sender.
func WithEmailSender(sender email.Sender) Option {
	return func(o *options) { o.sender = sender }
}

// WithHTTPClient sets the client used to reach the auth service.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// New creates a Server from cfg.
//
// Only the auth service URL and anon key are required. A missing
// service-role key leaves bearer authentication failing with a configuration
// error; missing email or static-key secrets fail their routes per request.
func New(cfg config.Settings, logger *slog.Logger, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		if store, err = openStore(cfg, logger); err != nil {
			return nil, err
		}
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
	if err := s.setupRoutes(o); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// openStore picks Postgres when DATABASE_URL is set and SQLite otherwise.
func openStore(cfg config.Settings, logger *slog.Logger) (repository.Store, error) {
	if cfg.DatabaseURL != "" {
		db, err := postgresRepo.New(cfg.DatabaseURL, postgresRepo.Options{
			AutoMigrate: cfg.AutoMigrate,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil
	}

	if cfg.DBPath != ":memory:" {
		// os.MkdirAll is `mkdir -p`: it creates missing parents and is a
		// no-op when the directory exists.
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// Handler returns the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /healthz                   → liveness + store ping
//	POST /auth/login                → send magic link
//	GET  /auth/confirm              → finish login, set session cookie
//	POST /auth/logout               → clear session cookie
//	GET  /api/debug/env             → email configuration flags
//	POST /api/notifications/email   → x-api-key
//	GET  /api/cron/run              → Bearer CRON_SECRET
//	POST /api/checkins              ┐
//	GET  /api/checkins              │
//	GET  /api/checkins/report       │
//	POST /api/schedules             ├ session cookie or bearer token
//	GET  /api/schedules             │
//	GET  /api/me                    │
//	POST /api/email/checkin         │
//	POST /api/email/quote           ┘
//
// MIDDLEWARE ORDER MATTERS:
// RequestID must run before Logger so every log line carries the id, and
// Recoverer sits inside Logger so a recovered panic is logged as a 500.
func (s *Server) setupRoutes(o options) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Auth service clients ===
	var hcOpts []supabase.Option
	if o.httpClient != nil {
		hcOpts = append(hcOpts, supabase.WithHTTPClient(o.httpClient))
	}
	anon, err := supabase.New(s.cfg.SupabaseURL, s.cfg.AnonKey, hcOpts...)
	if err != nil {
		return fmt.Errorf("creating auth client: %w", err)
	}

	sessions, tokens := s.verifiers(anon, hcOpts)
	resolver := auth.NewResolver(auth.ResolverConfig{
		CookieSession: true,
		BearerToken:   true,
		CookieName:    anon.SessionCookieName(),
	}, sessions, tokens, s.logger)

	// === Services ===
	dispatcher := email.NewDispatcher(email.Config{APIKey: s.cfg.ResendAPIKey, From: s.cfg.ResendFrom}, o.sender, s.logger)
	checkins := service.NewCheckinService(s.store, s.logger)
	schedules := service.NewScheduleService(s.store, s.logger)
	notifications := service.NewNotificationService(s.store, s.store, dispatcher, s.logger)

	// === Handlers ===
	checkinHandler := handler.NewCheckinHandler(checkins, s.logger)
	scheduleHandler := handler.NewScheduleHandler(schedules, s.logger)
	emailHandler := handler.NewEmailHandler(notifications, s.logger)
	notificationHandler := handler.NewNotificationHandler(notifications, s.logger)
	authHandler := handler.NewAuthHandler(anon, s.sealer(), anon.SessionCookieName(), s.cfg.SiteURL, s.logger)

	s.router.Get("/healthz", handler.HandleHealth(s.store))

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Get("/confirm", authHandler.HandleConfirm)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/debug/env", handler.HandleDebugEnv(dispatcher))
		r.With(auth.RequireAPIKey("x-api-key", s.cfg.NotificationAPIKey)).
			Post("/notifications/email", notificationHandler.HandleSend)
		r.With(auth.RequireBearerSecret(s.cfg.CronSecret)).
			Get("/cron/run", handler.HandleCronRun(s.logger))

		// Everything below needs a resolved principal.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(resolver, s.logger))

			r.Get("/me", handler.HandleMe(s.logger))
			r.Post("/checkins", checkinHandler.HandleCreate)
			r.Get("/checkins", checkinHandler.HandleList)
			r.Get("/checkins/report", checkinHandler.HandleReport)
			r.Post("/schedules", scheduleHandler.HandleSave)
			r.Get("/schedules", scheduleHandler.HandleGet)
			r.Post("/email/checkin", emailHandler.HandleCheckinReminder)
			r.Post("/email/quote", emailHandler.HandleQuote)
		})
	})

	return nil
}

// verifiers picks how cookie sessions and bearer tokens are checked.
//
// With SUPABASE_JWT_SECRET set both are verified locally. Otherwise the
// anon client checks cookie sessions and the service-role client checks
// bearer tokens; without a service-role key bearer requests get a
// configuration error.
func (s *Server) verifiers(anon *supabase.Client, hcOpts []supabase.Option) (sessions, tokens auth.Verifier) {
	if s.cfg.JWTSecret != "" {
		local, err := auth.NewTokenService(s.cfg.JWTSecret)
		if err == nil {
			s.logger.Info("verifying access tokens locally")
			return local, local
		}
		s.logger.Warn("ignoring SUPABASE_JWT_SECRET", slog.String("error", err.Error()))
	}

	if s.cfg.ServiceRoleKey == "" {
		s.logger.Warn("SUPABASE_SERVICE_ROLE_KEY not set; bearer authentication is unavailable")
		return anon, auth.Unavailable(apperror.MissingConfiguration("SUPABASE_SERVICE_ROLE_KEY"))
	}
	elevated, err := supabase.New(s.cfg.SupabaseURL, s.cfg.ServiceRoleKey, hcOpts...)
	if err != nil {
		return anon, auth.Unavailable(err)
	}
	return anon, elevated
}

// sealer builds the PKCE cookie sealer from COOKIE_SECRET, falling back to
// the service-role key. nil disables /auth/login.
func (s *Server) sealer() *auth.Sealer {
	secret := s.cfg.CookieSecret
	if secret == "" {
		secret = s.cfg.ServiceRoleKey
	}
	sealer, err := auth.NewSealer(secret)
	if err != nil {
		s.logger.Warn("magic-link login disabled", slog.String("error", err.Error()))
		return nil
	}
	return sealer
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the store (flushes the SQLite WAL, releases pool connections)
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
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
			slog.Int("port", s.cfg.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Port)),
			slog.Bool("postgres", s.cfg.DatabaseURL != ""),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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
