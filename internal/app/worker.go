package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/domain"
	"github.com/GoArmGo/BookCatalog/internal/messaging/payloads"
	"github.com/GoArmGo/BookCatalog/internal/metrics"
	"github.com/GoArmGo/BookCatalog/internal/usecase"
)

// runWorker слушает очередь событий каталога и пишет их в audit_log
func runWorker(
	ctx context.Context,
	audit usecase.AuditUseCase,
	consumer ports.CatalogEventConsumer,
	m *metrics.Metrics,
	logger *slog.Logger,
) error {
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	stopped, err := consumer.StartConsumingCatalogEvents(workerCtx, auditHandler(audit, m, logger))
	if err != nil {
		return fmt.Errorf("start rabbitmq consumer: %w", err)
	}
	logger.Info("audit worker started, waiting for catalog events")

	<-ctx.Done()
	logger.Info("audit worker stopping")

	// брокер и хранилище закрываются после возврата, поэтому ждём текущее событие
	cancelWorker()
	<-stopped
	logger.Info("audit worker stopped")
	return nil
}

// auditHandler — обработчик одного события. Ошибка означает повторную доставку,
// поэтому некорректные события подтверждаются и только логируются.
func auditHandler(audit usecase.AuditUseCase, m *metrics.Metrics, logger *slog.Logger) func(context.Context, payloads.CatalogEventPayload) error {
	count := func(result string) {
		if m != nil {
			m.EventAudited(result)
		}
	}

	return func(ctx context.Context, event payloads.CatalogEventPayload) error {
		recorded, err := audit.RecordEvent(ctx, event)
		switch {
		case errors.Is(err, domain.ErrValidation):
			logger.Warn("malformed catalog event dropped", "event_id", event.ID, "error", err)
			count("invalid")
			return nil
		case err != nil:
			count("failed")
			return err
		case !recorded:
			count("duplicate")
			return nil
		default:
			count("recorded")
			return nil
		}
	}
}
