package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/GoArmGo/BookCatalog/internal/config"
	"github.com/GoArmGo/BookCatalog/internal/handler"
)

func (a *App) router() http.Handler {
	return handler.NewRouter(handler.RouterConfig{
		Books:          handler.NewBookHandler(a.Catalog, a.Logger),
		Users:          handler.NewUserHandler(a.Users, a.Logger),
		Health:         handler.NewHealthHandler(a.Gateway, 2*time.Second, a.Logger),
		Metrics:        a.Metrics,
		RequestTimeout: a.Config.RequestTimeout,
		Logger:         a.Logger,
	})
}

// runServer запускает HTTP сервер и блокируется до отмены ctx
func runServer(ctx context.Context, cfg *config.Config, h http.Handler, logger *slog.Logger) error {
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return serve(ctx, ln, h, cfg.ShutdownTimeout, logger)
}

// serve обслуживает ln до отмены ctx, затем даёт активным запросам shutdownTimeout на завершение
func serve(ctx context.Context, ln net.Listener, h http.Handler, shutdownTimeout time.Duration, logger *slog.Logger) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", "addr", ln.Addr().String())
		serveErr <- server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, stopping http server", "timeout", shutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("http server stopped", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
