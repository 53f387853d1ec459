// Package server sets up the HTTP server, router, and route
// definitions.
//
// This is the composition root: every dependency — database, upload
// store, password and token services, the account service, the admin
// registry — is constructed and wired here, in one place. Handlers get
// services, services get repository interfaces, and nothing reaches
// around its layer.
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

	"github.com/sakif/careportal/internal/admin"
	"github.com/sakif/careportal/internal/auth"
	"github.com/sakif/careportal/internal/handler"
	"github.com/sakif/careportal/internal/middleware"
	sqliteRepo "github.com/sakif/careportal/internal/repository/sqlite"
	"github.com/sakif/careportal/internal/service"
	"github.com/sakif/careportal/internal/storage"
)

// Config holds server configuration, loaded from the environment in
// cmd/server.
type Config struct {
	Port      int
	DBPath    string // path to the SQLite database file
	UploadDir string // directory for stored profile pictures
	JWTSecret string // HMAC secret for session tokens
}

// Server owns the router and the resources that need closing on
// shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server with its full dependency graph wired.
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

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires middleware, services, and route handlers.
//
// Route map:
//
//	GET    /healthz                      → liveness
//	POST   /auth/register                → create account (signup form)
//	POST   /auth/login                   → verify credentials, set session cookie
//	POST   /auth/logout                  → clear session cookie
//	GET    /media/{name}                 → stored profile pictures
//	GET    /api/me                       → authenticated account        [auth]
//	PUT    /api/me                       → profile self-edit            [auth]
//	GET    /admin/resources              → registered editable types    [staff]
//	GET    /admin/accounts               → directory listing + filters  [staff]
//	POST   /admin/accounts               → operator create              [staff]
//	GET    /admin/accounts/{id}          → full record                  [staff]
//	PUT    /admin/accounts/{id}          → operator edit                [staff]
//	DELETE /admin/accounts/{id}          → delete account + picture     [staff]
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	pictures, err := storage.NewStore(s.config.UploadDir)
	if err != nil {
		return fmt.Errorf("creating upload store: %w", err)
	}

	passwords := auth.NewPasswordService()
	accountSvc := service.NewAccountService(s.db, passwords, pictures, s.logger)

	// The admin directory is populated by explicit registration at
	// startup: one call per editable type.
	registry := admin.NewRegistry()
	if err := registry.Register(handler.AccountResource); err != nil {
		return fmt.Errorf("registering admin resources: %w", err)
	}

	accountHandler := handler.NewAccountHandler(accountSvc, tokens, s.logger)
	adminHandler := handler.NewAdminHandler(accountSvc, registry, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", accountHandler.HandleRegister)
		r.Post("/login", accountHandler.HandleLogin)
		r.Post("/logout", accountHandler.HandleLogout)
	})

	s.router.Get("/media/{name}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, pictures.Path(chi.URLParam(r, "name")))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/me", accountHandler.HandleMe)
		r.Put("/me", accountHandler.HandleUpdateMe)
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Use(auth.RequireStaff(s.db))
		r.Get("/resources", adminHandler.HandleResources)
		r.Get("/accounts", adminHandler.HandleList)
		r.Post("/accounts", adminHandler.HandleCreate)
		r.Get("/accounts/{id}", adminHandler.HandleGet)
		r.Put("/accounts/{id}", adminHandler.HandleUpdate)
		r.Delete("/accounts/{id}", adminHandler.HandleDelete)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, let in-flight requests finish
// (30s budget), close the database.
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
