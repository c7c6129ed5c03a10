// Package api provides the HTTP interface for the finchat service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/finchat/finchat/chat"
	"github.com/finchat/finchat/config"
	"github.com/finchat/finchat/knowledge"
)

// Server is the HTTP server for the chat and document API.
type Server struct {
	manager *knowledge.Manager
	router  *chat.Router
	cfg     config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(manager *knowledge.Manager, router *chat.Router, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		manager: manager,
		router:  router,
		cfg:     cfg,
		logger:  logger,
	}
}

// Handler builds the routing table. Exposed separately from Start so tests
// can drive it with httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/stats", s.handleStats)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handleUploadPermanent)
			r.Get("/", s.handleListPermanentDocuments)
			r.Delete("/{documentID}", s.handleDeletePermanentDocument)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Delete("/", s.handleClearSession)
				r.Get("/documents", s.handleListSessionDocuments)
				r.Post("/documents", s.handleUploadSessionDocument)
				r.Delete("/documents/{documentID}", s.handleDeleteSessionDocument)
			})
		})
	})

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
