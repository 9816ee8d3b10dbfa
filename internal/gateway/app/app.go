// Package app wires the gateway's dependencies together.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/sebas/dialdesk/internal/backend"
	"github.com/sebas/dialdesk/internal/gateway/api"
	"github.com/sebas/dialdesk/internal/gateway/config"
	"github.com/sebas/dialdesk/internal/softphone/messaging"
)

// Gateway is the assembled application.
type Gateway struct {
	cfg       *config.Config
	apiServer *api.Server
}

// New builds the gateway from configuration.
func New(cfg *config.Config) *Gateway {
	rest := backend.NewRESTClient(cfg.APIBaseURL)
	gw := messaging.NewGateway(rest)

	return &Gateway{
		cfg:       cfg,
		apiServer: api.NewServer(cfg, gw),
	}
}

// Start serves the HTTP API until the context is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.apiServer.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return g.apiServer.Shutdown(shutdownCtx)
	}
}
