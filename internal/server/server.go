// Package server wires the dependency graph and the HTTP routes, and runs
// the listener with graceful shutdown.
//
//	config → sqlite.DB → services → handlers → chi router
//
// Everything is assembled in New, the composition root; no package keeps
// global state.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/job-tracker/internal/auth"
	"github.com/sakif/job-tracker/internal/config"
	"github.com/sakif/job-tracker/internal/handler"
	"github.com/sakif/job-tracker/internal/middleware"
	sqliteRepo "github.com/sakif/job-tracker/internal/repository/sqlite"
	"github.com/sakif/job-tracker/internal/service"
)

// shutdownTimeout bounds how long in-flight requests get after a signal.
const shutdownTimeout = 30 * time.Second

// Server owns the router and the database connection. The connection is
// closed when Start returns or Close is called.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// Option customises a Server before its routes are built.
type Option func(*options)

type options struct {
	passwords *auth.PasswordService
}

// WithPasswordService overrides the bcrypt settings. Tests use it to drop
// the cost factor.
func WithPasswordService(p *auth.PasswordService) Option {
	return func(o *options) { o.passwords = p }
}

// New opens the database and builds the full handler chain.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	o := options{passwords: auth.NewPasswordService()}
	for _, opt := range opts {
		opt(&o)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpire)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

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
	s.setupRoutes(tokens, o.passwords)

	return s, nil
}

// setupRoutes configures middleware and routes.
//
//	GET    /healthz                    → liveness + DB ping
//	POST   /api/auth/register          → create account
//	POST   /api/auth/login             → issue token
//	GET    /api/auth/me                → caller profile        [auth]
//	GET    /api/applications           → list                  [auth]
//	POST   /api/applications           → create                [auth]
//	GET    /api/applications/stats     → statistics            [auth]
//	GET    /api/applications/{id}      → get one               [auth]
//	PUT    /api/applications/{id}      → partial update        [auth]
//	DELETE /api/applications/{id}      → delete                [auth]
//
// Middleware runs in the order added: request ID first so the logger can
// see it. The logger wraps Recoverer, so a recovered panic is logged as a 500.
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	appService := service.NewApplicationService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	appHandler := handler.NewApplicationHandler(appService, s.logger)

	requireAuth := auth.RequireAuth(tokens, authService, handler.WriteError)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/me", authHandler.HandleMe)

			r.Route("/applications", func(r chi.Router) {
				r.Get("/", appHandler.HandleList)
				r.Post("/", appHandler.HandleCreate)
				r.Get("/stats", appHandler.HandleStats)
				r.Get("/{id}", appHandler.HandleGet)
				r.Put("/{id}", appHandler.HandleUpdate)
				r.Delete("/{id}", appHandler.HandleDelete)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"success":false,"message":"database unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start listens on the configured port and blocks until SIGINT/SIGTERM or a
// listener failure. On a signal it stops accepting connections, gives
// in-flight requests shutdownTimeout to finish, then closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
