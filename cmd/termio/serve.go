package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"termio/internal/app/registry"
	"termio/internal/app/stream"
	"termio/internal/configs"
	"termio/internal/handler"
	"termio/internal/pkg/logx"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the TermIO broadcast server",
		Long: `Run the broadcast server. Configuration comes from environment
variables (optionally via a local .env file): HOST, PORT, ENVIRONMENT,
ALLOWED_ORIGINS, MAX_USERS, MAX_MESSAGE_BYTES, IDLE_TIMEOUT_SECONDS,
CHAT_QUEUE_SIZE.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.Addr()).
		Int("max_users", cfg.MaxUsers).
		Int64("max_message_bytes", cfg.MaxMessageBytes).
		Dur("idle_timeout", cfg.IdleTimeout).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(cfg.MaxUsers)
	hub := stream.NewHub(stream.Config{
		MaxMessageBytes: cfg.MaxMessageBytes,
		IdleTimeout:     cfg.IdleTimeout,
		ChatQueueSize:   cfg.ChatQueueSize,
	}, reg)

	router := handler.Router(&handler.AppDeps{
		Hub:    hub,
		Config: cfg,
	})

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("TermIO server listening on %s", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		// A listener that cannot bind is fatal at startup; no partial server
		// state is left running.
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "HTTP server forced to shutdown")
	}

	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
	return nil
}
