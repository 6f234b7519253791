// Package api exposes the scheduling services as JSON over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/internal/config"
	"github.com/jakechorley/church-music-scheduler/pkg/db"
)

// Server holds the dependencies shared by every handler
type Server struct {
	store  db.Database
	logger *zap.Logger
	cfg    *config.Config
}

// NewServer constructs a Server
func NewServer(store db.Database, logger *zap.Logger, cfg *config.Config) *Server {
	return &Server{store: store, logger: logger, cfg: cfg}
}

// Routes builds the router.
//
//	GET   /health
//	POST  /api/v1/series
//	PATCH /api/v1/series/{rootID}
//	POST  /api/v1/auto-assign
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.AllowContentType("application/json"))

		r.Post("/series", s.CreateSeries)
		r.Patch("/series/{rootID}", s.EditSeries)
		r.Post("/auto-assign", s.AutoAssign)
	})

	return r
}
