package storage

import (
	"context"

	"github.com/GoArmGo/BookCatalog/internal/domain"
)

const auditTable = "audit_log"

// RecordAudit добавляет запись в журнал. Повтор того же event_id — ConflictError.
func (s *session) RecordAudit(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
	INSERT INTO audit_log (event_id, event_type, entity, entity_id, occurred_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, recorded_at
	`

	err := s.tx.QueryRowxContext(ctx, query,
		entry.EventID, entry.EventType, entry.Entity, entry.EntityID, entry.OccurredAt,
	).Scan(&entry.ID, &entry.RecordedAt)
	if err != nil {
		return classify("record audit", "audit entry", auditTable, err)
	}

	s.logger.Debug("audit entry recorded", "event_id", entry.EventID, "event_type", entry.EventType)
	return nil
}
