package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/BookCatalog/internal/app"
	"github.com/GoArmGo/BookCatalog/internal/config"
	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/database/client"
	"github.com/GoArmGo/BookCatalog/internal/database/memory"
	"github.com/GoArmGo/BookCatalog/internal/database/storage"
	"github.com/GoArmGo/BookCatalog/internal/logger"
	"github.com/GoArmGo/BookCatalog/internal/metrics"
	"github.com/GoArmGo/BookCatalog/internal/rabbitmq"
	"github.com/GoArmGo/BookCatalog/internal/schema"
	"github.com/GoArmGo/BookCatalog/internal/usecase"
)

// BuildApp инициализирует все зависимости и возвращает готовый объект App.
func BuildApp(ctx context.Context) (*app.App, error) {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	return Build(ctx, cfg, slogger)
}

// Build собирает приложение из готовой конфигурации.
func Build(ctx context.Context, cfg *config.Config, slogger *slog.Logger) (*app.App, error) {
	// 2. Хранилище и менеджер схемы
	gateway, migrator, err := buildStore(ctx, cfg, slogger)
	if err != nil {
		return nil, err
	}

	// 3. Брокер событий (необязателен)
	var (
		publisher ports.CatalogEventPublisher = ports.NoopPublisher{}
		consumer  ports.CatalogEventConsumer
	)
	if cfg.EventsEnabled() {
		rabbitMQClient, err := rabbitmq.NewClient(cfg, slogger)
		if err != nil {
			closeStore(gateway, migrator, slogger)
			return nil, err
		}
		publisher = rabbitMQClient
		consumer = rabbitMQClient
	} else {
		slogger.Info("RABBITMQ_URL is empty, catalog events disabled")
	}

	// 4. Бизнес-логика
	m := metrics.New()
	deps := app.Deps{
		Config:    cfg,
		Logger:    slogger,
		Gateway:   gateway,
		Catalog:   usecase.NewCatalogUseCase(gateway, publisher, m, slogger),
		Users:     usecase.NewUserUseCase(gateway, publisher, m, cfg.BcryptCost, slogger),
		Audit:     usecase.NewAuditUseCase(gateway, slogger),
		Publisher: publisher,
		Consumer:  consumer,
		Metrics:   m,
	}
	if migrator != nil {
		deps.Migrator = migrator
	}

	slogger.Info("all dependencies initialized", "memory_store", cfg.UsesMemoryStore(), "events", cfg.EventsEnabled())
	return app.NewApp(deps), nil
}

// buildStore выбирает реализацию хранилища по схеме DATABASE_URL.
// Для памяти менеджер схемы не нужен и возвращается nil.
func buildStore(ctx context.Context, cfg *config.Config, slogger *slog.Logger) (ports.Gateway, *schema.Manager, error) {
	if cfg.UsesMemoryStore() {
		slogger.Warn("using in-memory store, data is lost on restart")
		return memory.NewGateway(slogger), nil, nil
	}

	dbClient, err := client.NewClient(ctx, cfg, slogger)
	if err != nil {
		return nil, nil, err
	}

	migrator, err := schema.NewManager(cfg.DatabaseURL, slogger)
	if err != nil {
		if closeErr := dbClient.Close(); closeErr != nil {
			slogger.Error("failed to close database after schema manager error", "error", closeErr)
		}
		return nil, nil, fmt.Errorf("init schema manager: %w", err)
	}

	return storage.NewPostgresGateway(dbClient.DB, slogger), migrator, nil
}

func closeStore(gateway ports.Gateway, migrator *schema.Manager, slogger *slog.Logger) {
	if migrator != nil {
		if err := migrator.Close(); err != nil {
			slogger.Error("failed to close schema manager", "error", err)
		}
	}
	if err := gateway.Close(); err != nil {
		slogger.Error("failed to close store", "error", err)
	}
}
