package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/domain"
	"github.com/GoArmGo/BookCatalog/internal/messaging/payloads"
)

// AuditUseCase записывает события каталога в журнал audit_log.
type AuditUseCase interface {
	// RecordEvent возвращает false без ошибки, если событие уже записано
	// (повторная доставка из очереди).
	RecordEvent(ctx context.Context, event payloads.CatalogEventPayload) (bool, error)
}

type auditUseCase struct {
	gateway ports.Gateway
	logger  *slog.Logger
}

func NewAuditUseCase(gateway ports.Gateway, logger *slog.Logger) AuditUseCase {
	return &auditUseCase{gateway: gateway, logger: logger}
}

func (uc *auditUseCase) RecordEvent(ctx context.Context, event payloads.CatalogEventPayload) (bool, error) {
	if event.ID == uuid.Nil || event.Type == "" || event.Entity == "" {
		return false, domain.NewValidationError("event", "id, type and entity are required")
	}

	entry := domain.AuditEntry{
		EventID:    event.ID,
		EventType:  event.Type,
		Entity:     event.Entity,
		EntityID:   event.EntityID,
		OccurredAt: event.OccurredAt,
	}
	err := uc.gateway.WithSession(ctx, func(ctx context.Context, s ports.Session) error {
		return s.RecordAudit(ctx, &entry)
	})
	if errors.Is(err, domain.ErrConflict) {
		uc.logger.Info("duplicate catalog event skipped", "event_id", event.ID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("usecase: record audit event %s: %w", event.ID, err)
	}

	uc.logger.Info("catalog event recorded", "event_id", event.ID, "event_type", event.Type, "entity_id", event.EntityID)
	return true, nil
}
