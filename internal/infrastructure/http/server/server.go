package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/config"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/handlers"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	Sale    *handlers.SaleHandler
	Reserve *handlers.ReserveHandler
	Admin   *handlers.AdminHandler
	// Auth wraps the admin routes; it must place the caller in the context.
	Auth func(http.Handler) http.Handler
}

type Server struct {
	server         *http.Server
	logger         *logger.Logger
	allowedOrigins []string

	healthHandler  *handlers.HealthHandler
	saleHandler    *handlers.SaleHandler
	reserveHandler *handlers.ReserveHandler
	adminHandler   *handlers.AdminHandler
	authMiddleware func(http.Handler) http.Handler
}

func NewServer(cfg config.ServerConfig, h Handlers, logger *logger.Logger) *Server {
	s := &Server{
		logger:         logger,
		allowedOrigins: cfg.AllowedOrigins,
		healthHandler:  h.Health,
		saleHandler:    h.Sale,
		reserveHandler: h.Reserve,
		adminHandler:   h.Admin,
		authMiddleware: h.Auth,
	}
	if s.authMiddleware == nil {
		s.authMiddleware = func(next http.Handler) http.Handler { return next }
	}
	if len(s.allowedOrigins) == 0 {
		s.allowedOrigins = []string{"*"}
	}

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
