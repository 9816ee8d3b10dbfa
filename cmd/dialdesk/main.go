package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sebas/dialdesk/internal/banner"
	"github.com/sebas/dialdesk/internal/gateway/app"
	"github.com/sebas/dialdesk/internal/gateway/config"
	"github.com/sebas/dialdesk/internal/logger"
)

func main() {
	logger.Init(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	// Print startup banner
	banner.Print("GATEWAY", []banner.ConfigLine{
		{Label: "HTTP Listen", Value: cfg.Addr()},
		{Label: "API Base", Value: cfg.APIBaseURL},
		{Label: "Log Level", Value: cfg.LogLevel},
	})

	gateway := app.New(cfg)

	slog.Info("Starting dialdesk gateway",
		"addr", cfg.Addr(),
		"api_base", cfg.APIBaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gateway.Start(ctx); err != nil {
		slog.Error("Gateway error", "error", err)
		os.Exit(1)
	}
	slog.Info("Gateway stopped")
}
