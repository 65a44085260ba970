package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/agent"
	apperrors "github.com/Hamhunter23/verifi-data-agent/internal/errors"
	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
	servermw "github.com/Hamhunter23/verifi-data-agent/internal/server/middleware"
)

// Options configures the HTTP server.
type Options struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Version      string
	// AdminToken enables POST /admin/signal when set.
	AdminToken string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	agent  *agent.Agent
	opts   Options
}

// New creates a server exposing a.
func New(a *agent.Agent, opts Options) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// RequestID → Requester → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.Requester)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		err := apperrors.NewNotFoundError("The requested resource was not found")
		apperrors.RespondWithError(w, req, err)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		err := apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource")
		apperrors.RespondWithError(w, req, err)
	})

	s := &Server{
		router: r,
		agent:  a,
		opts:   opts,
	}

	s.registerRoutes()

	return s
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  orDefault(s.opts.ReadTimeout, 30*time.Second),
		WriteTimeout: orDefault(s.opts.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(s.opts.IdleTimeout, 120*time.Second),
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.opts.Host),
			zap.Int("port", s.opts.Port),
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.opts.Port
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
