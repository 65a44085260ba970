package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
	"github.com/Hamhunter23/verifi-data-agent/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	health := handlers.NewHealthManager(s.agent, s.opts.Version)
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)

	s.router.Get("/version", handlers.VersionHandler)

	s.router.Get("/metrics", MetricsHandler)

	api := &handlers.AgentHandlers{Agent: s.agent}
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/chat", api.Chat)
		r.Post("/requests", api.Structured)
		r.Get("/kinds", api.Kinds)
	})

	s.registerAdminEndpoint()
}

// registerAdminEndpoint registers the signal endpoint when an admin token is configured.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger

	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no admin token set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
