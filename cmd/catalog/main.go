package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/GoArmGo/BookCatalog/internal/di"
)

func main() {
	mode := flag.String("mode", "server", "Режим запуска: server, worker, migrate или seed")
	flag.Parse()

	// bootstrap-логгер нужен только до того, как собран основной
	bootstrapLogger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	bootstrapLogger.Info("starting application", "mode", *mode)

	ctx := context.Background()

	app, err := di.BuildApp(ctx)
	if err != nil {
		bootstrapLogger.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	log := app.LoggerIns()
	if err := app.Run(ctx, *mode); err != nil {
		log.Error("application run failed", "mode", *mode, "error", err)
		os.Exit(1)
	}

	log.Info("application stopped gracefully")
}
