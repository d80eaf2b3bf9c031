// Pasarindo Payments Service
//
// This is the main entry point for the payment processing service.
// It wires up all dependencies and starts the HTTP server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pasarindo/payments/config"
	"github.com/pasarindo/payments/internal/adapters/doku"
	"github.com/pasarindo/payments/internal/adapters/store"
	"github.com/pasarindo/payments/internal/core/invoice"
	"github.com/pasarindo/payments/internal/core/service"
	"github.com/pasarindo/payments/internal/handlers"
)

func main() {
	initLogger()
	slog.Info("starting pasarindo payments service")

	// Load configuration
	cfg := config.Load()
	slog.Info("configuration loaded", "port", cfg.Server.Port, "gateway", cfg.Doku.BaseURL)

	// Missing credentials are fatal here, before any request is accepted.
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// Wire up dependencies (manual dependency injection)
	//
	// Infrastructure Layer
	gateway, err := doku.NewClient(doku.Config{
		BaseURL:   cfg.Doku.BaseURL,
		ClientID:  cfg.Doku.ClientID,
		SecretKey: cfg.Doku.SecretKey,
		Timeout:   cfg.Doku.RequestTimeout,
	})
	if err != nil {
		slog.Error("gateway client error", "error", err)
		os.Exit(1)
	}

	txStore, err := store.OpenSQLite(cfg.Store.SQLitePath)
	if err != nil {
		slog.Error("store error", "error", err)
		os.Exit(1)
	}
	defer txStore.Close()

	// Service Layer
	paymentService := service.NewPaymentService(
		gateway,
		invoice.NewAllocator(),
		txStore,
		cfg.Doku.CallbackURL,
		cfg.Doku.DueWindowMinutes,
	)

	// API Layer
	handler := handlers.NewPaymentHandler(paymentService)
	router := handlers.SetupRouter(handler, cfg.Server.GinMode)

	// Start server in a goroutine
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	go func() {
		slog.Info("server listening", "addr", serverAddr)
		if err := router.Run(serverAddr); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
}

// initLogger installs a JSON slog handler as the process-wide default.
func initLogger() {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}
