package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/middleware"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/monitoring"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/tracing"
)

const requestTimeout = 30 * time.Second

func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(s.logger))
	r.Use(middleware.NewLoggingMiddleware(s.logger))
	r.Use(monitoring.WrapHandler)
	r.Use(tracing.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match", "X-Request-Id"},
		ExposedHeaders:   []string{"ETag", "Retry-After", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Handle("/metrics", monitoring.Handler())
	r.Get("/health", s.healthHandler.HandleHealth())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", s.saleHandler.HandleListSales)
			r.Get("/{saleID}", s.saleHandler.HandleGetSale)
			r.Post("/{saleID}/offers/{offerID}/reserve", s.reserveHandler.HandleReserve)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/sales", s.adminHandler.HandleCreateSale)
			r.Patch("/sales/{saleID}", s.adminHandler.HandleUpdateSale)
			r.Delete("/sales/{saleID}", s.adminHandler.HandleDeleteSale)
			r.Get("/analytics", s.adminHandler.HandleAnalytics)
			r.Get("/hot-offers", s.adminHandler.HandleHotOffers)
		})
	})

	return r
}
