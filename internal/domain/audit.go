package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	BookEntity = "book"
	UserEntity = "user"

	EventBookCreated = "book.created"
	EventUserCreated = "user.created"
)

// AuditEntry — запись журнала изменений каталога,
// соответствует таблице audit_log в бд
type AuditEntry struct {
	ID         int64     `json:"id" db:"id"`
	EventID    uuid.UUID `json:"event_id" db:"event_id"`
	EventType  string    `json:"event_type" db:"event_type"`
	Entity     string    `json:"entity" db:"entity"`
	EntityID   int64     `json:"entity_id" db:"entity_id"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

func (AuditEntry) TableName() string {
	return "audit_log"
}
