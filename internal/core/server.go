// Package core provides the API chassis for MyoMesh. It creates a chi router
// served both by a standard HTTP listener (local) and by API Gateway through
// chiadapter (Lambda), and applies the cross-cutting middleware before
// requests reach the email handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"myomesh/internal/config"
)

// Server holds the dependencies of the API.
type Server struct {
	Config        *config.Config
	Logger        *slog.Logger
	Validator     *Validator
	Authenticator Authenticator
	HealthProbes  []HealthProbe

	// V1RouteRegistrars mount domain handlers under /v1. They are added by
	// the entrypoint so core does not import the handler packages.
	V1RouteRegistrars []func(chi.Router)

	// Closers are released on Shutdown, in order.
	Closers []func()

	router *chi.Mux
}

// NewServer validates the required dependencies and creates a Server. Routes
// are mounted separately with MountRoutes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router. Used by http.Server (local) and chiadapter (Lambda).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases resources registered in Closers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")
	for _, closeFn := range s.Closers {
		closeFn()
	}
	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
