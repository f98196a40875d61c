package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/messaging/payloads"
)

const publishTimeout = 5 * time.Second

// eventNotifier публикует событие уже после коммита.
// Ошибка брокера только логируется: данные сохранены, запрос успешен.
type eventNotifier struct {
	publisher ports.CatalogEventPublisher
	observer  CreationObserver
	logger    *slog.Logger
}

func (n eventNotifier) created(ctx context.Context, eventType, entity string, id int64) {
	n.observer.EntityCreated(entity)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := payloads.NewCatalogEvent(eventType, entity, id)
	if err := n.publisher.PublishCatalogEvent(pubCtx, event); err != nil {
		n.logger.Error("failed to publish catalog event",
			"event_id", event.ID,
			"event_type", eventType,
			"entity_id", id,
			"error", err,
		)
		return
	}
	n.logger.Debug("catalog event published", "event_id", event.ID, "event_type", eventType)
}
