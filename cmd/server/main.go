package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"childhood-friend/internal/bootstrap"
	httptransport "childhood-friend/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	if err := run(ctx, app); err != nil {
		app.Log.Error("server stopped with error", "error", err)
		_ = app.Close()
		os.Exit(1)
	}
	if err := app.Close(); err != nil {
		app.Log.Warn("close resources failed", "error", err)
	}
}

func run(ctx context.Context, app *bootstrap.App) error {
	server := httptransport.NewServer(app)

	errCh := make(chan error, 1)
	go func() {
		app.Log.Info("server starting", "addr", server.Addr(), "ws_path", app.Config.App.WSPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.Log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
