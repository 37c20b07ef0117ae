package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"smartlaunch/pkg/logging"
)

// runServer starts the HTTP server and blocks until shutdown. Stores are
// closed after in-flight requests finish.
func runServer(ctx context.Context, services *Services, shutdownTimeout time.Duration) error {
	defer services.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := services.Server.Start(); err != nil {
		logging.Error("App", err, "Failed to start server")
		return err
	}

	logging.Info("App", "Launch service ready. Press Ctrl+C to stop.")

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info("App", "Shutdown requested")
	case serveErr = <-services.Server.Err():
		logging.Error("App", serveErr, "Server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := services.Server.Shutdown(shutdownCtx); err != nil {
		logging.Error("App", err, "Graceful shutdown did not complete")
		if serveErr == nil {
			serveErr = fmt.Errorf("shutdown: %w", err)
		}
	}

	return serveErr
}
