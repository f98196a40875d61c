package payloads

import (
	"time"

	"github.com/google/uuid"
)

// CatalogEventPayload представляет событие об изменении каталога,
// которое публикуется в RabbitMQ после успешного коммита.
type CatalogEventPayload struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Entity     string    `json:"entity"`
	EntityID   int64     `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewCatalogEvent создаёт событие с новым идентификатором.
func NewCatalogEvent(eventType, entity string, entityID int64) CatalogEventPayload {
	return CatalogEventPayload{
		ID:         uuid.New(),
		Type:       eventType,
		Entity:     entity,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
}
