package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"dreamclerk/internal/config"
	"dreamclerk/internal/handler"
	"dreamclerk/internal/middleware"
)

const shutdownTimeout = 30 * time.Second

type Handlers struct {
	Blog    *handler.BlogHandler
	Account *handler.AccountHandler
	Counter *handler.CounterHandler
	Admin   *handler.AdminHandler
}

type Server struct {
	router *chi.Mux
	config config.ServerConfig
	logger *slog.Logger
}

// New builds the router. tokens may be nil when no JWT secret is set, in
// which case profile routes always answer 401.
func New(cfg config.ServerConfig, h Handlers, tokens middleware.TokenValidator, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(h, tokens)
	return s
}

func (s *Server) setupRoutes(h Handlers, tokens middleware.TokenValidator) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/healthz", h.Admin.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/blog", func(r chi.Router) {
			r.Post("/generate", h.Blog.HandleGenerate)
			r.Get("/generate", h.Blog.HandleGenerateStatus)
			r.Post("/test", h.Blog.HandleTest)
			r.Get("/posts", h.Blog.HandleListPosts)
			r.Get("/posts/{slug}", h.Blog.HandleGetPost)
			r.Get("/posts/{slug}/markdown", h.Blog.HandleMarkdown)
		})

		r.Get("/cron/generate-blogs", h.Blog.HandleCron)

		r.Get("/counter", h.Counter.HandleCurrent)
		r.Get("/counter/reconcile", h.Counter.HandleReconcile)
		r.Get("/registrations/stats", h.Account.HandleStats)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Account.HandleRegister)
			r.Post("/atomic-register", h.Account.HandleAtomicRegister)
			r.Post("/create-admin", h.Account.HandleCreateAdmin)
			r.Post("/login", h.Account.HandleLogin)
		})

		r.Post("/admin/setup", h.Admin.HandleSetup)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(tokens))
			r.Get("/profile", h.Account.HandleGetProfile)
			r.Put("/profile", h.Account.HandleUpdateProfile)
		})
	})
}

func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "port", s.config.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}
