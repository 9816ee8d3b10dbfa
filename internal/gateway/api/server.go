// Package api provides the HTTP surface of the gateway: message sending,
// call and message history, and access token issuance, all backed by the
// telephony platform.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sebas/dialdesk/internal/gateway/config"
	"github.com/sebas/dialdesk/internal/gateway/middleware"
	"github.com/sebas/dialdesk/internal/softphone/messaging"
)

// Server serves the gateway HTTP API.
type Server struct {
	cfg        *config.Config
	gw         *messaging.Gateway
	httpServer *http.Server
	startTime  time.Time
}

// NewServer creates the API server over the given messaging gateway.
func NewServer(cfg *config.Config, gw *messaging.Gateway) *Server {
	s := &Server{
		cfg:       cfg,
		gw:        gw,
		startTime: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/send-message", s.handleSendMessage)
	r.Post("/api/v1/call-history", s.handleCallHistory)
	r.Post("/api/v1/message-history", s.handleMessageHistory)
	r.Get("/api/v1/access-token", s.handleAccessToken)
	r.Post("/api/v1/access-token", s.handleAccessToken)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	slog.Info("API server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
