package ports

import (
	"context"

	"github.com/GoArmGo/BookCatalog/internal/messaging/payloads"
)

// CatalogEventPublisher определяет методы для публикации событий каталога
// Этот интерфейс используется бизнес-логикой после коммита
type CatalogEventPublisher interface {
	PublishCatalogEvent(ctx context.Context, payload payloads.CatalogEventPayload) error
}

// CatalogEventConsumer определяет методы для потребления событий каталога
// используется воркером аудита
type CatalogEventConsumer interface {
	// StartConsumingCatalogEvents начинает прослушивание очереди
	// принимает функцию-обработчик, которая будет вызываться для каждого полученного сообщения.
	// Возвращённый канал закрывается, когда потребитель остановлен и обработчик больше не вызывается.
	StartConsumingCatalogEvents(ctx context.Context, handler func(context.Context, payloads.CatalogEventPayload) error) (<-chan struct{}, error)
}

// NoopPublisher используется, когда брокер не настроен.
type NoopPublisher struct{}

func (NoopPublisher) PublishCatalogEvent(context.Context, payloads.CatalogEventPayload) error {
	return nil
}
