// Package server builds the HTTP router and runs the HTTP server.
//
// This is the wiring layer. It decides which URL maps to which handler,
// which middleware runs where, and how the server stops. It does not
// construct services or open the database; main does that and passes
// the results in, so tests can hand the server fakes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sakif/article-api/internal/auth"
	"github.com/sakif/article-api/internal/handler"
	"github.com/sakif/article-api/internal/middleware"
)

// Config holds server configuration.
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	AllowedOrigins []string

	// AssetDir is served under /storage/. Empty when assets live in S3.
	AssetDir       string
	MaxUploadBytes int64
}

// Deps are the collaborators the routes need.
type Deps struct {
	Users    handler.UserService
	Articles handler.ArticleService
	Verifier auth.TokenVerifier
	DB       handler.Pinger
}

// Server represents the HTTP server and its router.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
}

// New wires deps into a router. It does not start listening.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Users == nil || deps.Articles == nil || deps.Verifier == nil || deps.DB == nil {
		return nil, errors.New("server: missing dependency")
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(deps)
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                → database ping
// GET    /storage/*              → uploaded images (local driver only)
// POST   /api/register           → create account
// POST   /api/login              → issue token
// GET    /api/profile            → own account            [auth]
// PUT    /api/profile            → update own account     [auth]
// POST   /api/logout             → revoke own tokens      [auth]
// GET    /api/articles           → list own articles      [auth]
// POST   /api/articles           → create article         [auth]
// GET    /api/articles/{id}      → show own article       [auth]
// PUT    /api/articles/{id}      → update own article     [auth]
// DELETE /api/articles/{id}      → delete own article     [auth]
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs first so the logger can print it. Recoverer sits inside
// the logger so a panic is still logged as a 500. CORS answers preflight
// requests before any route matching.
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(s.cors().Handler)

	health := handler.NewHealthHandler(deps.DB, s.logger)
	s.router.Get("/healthz", health.HandleHealth)

	if s.config.AssetDir != "" {
		files := http.StripPrefix("/storage/", http.FileServer(http.Dir(s.config.AssetDir)))
		s.router.Handle("/storage/*", noDirListing(files))
	}

	users := handler.NewUserHandler(deps.Users, s.config.MaxUploadBytes, s.logger)
	articles := handler.NewArticleHandler(deps.Articles, s.config.MaxUploadBytes, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", users.HandleRegister)
		r.Post("/login", users.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(deps.Verifier))

			r.Get("/profile", users.HandleProfile)
			r.Put("/profile", users.HandleUpdateProfile)
			r.Post("/logout", users.HandleLogout)

			r.Get("/articles", articles.HandleList)
			r.Post("/articles", articles.HandleCreate)
			r.Get("/articles/{id}", articles.HandleShow)
			r.Put("/articles/{id}", articles.HandleUpdate)
			r.Delete("/articles/{id}", articles.HandleDelete)
		})
	})
}

func (s *Server) cors() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept"},
		MaxAge:         300,
	})
}

// noDirListing hides http.FileServer's directory index pages.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. stop accepting new connections
//  2. wait up to ShutdownTimeout for in-flight requests
//
// Closing the database and draining the notification queue is the
// caller's job once Run returns, because the caller opened them.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("server: listening: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
