package storage

import (
	"database/sql"
	"errors"

	"github.com/GoArmGo/BookCatalog/internal/domain"
	"github.com/GoArmGo/BookCatalog/internal/schema"
	"github.com/lib/pq"
)

// classify переводит ошибку драйвера в таксономию домена.
// Наружу сырые ошибки PostgreSQL не уходят.
func classify(op, entity, table string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return &domain.ConflictError{Entity: entity, Field: conflictField(table, pqErr.Constraint)}
	}
	return &domain.StoreError{Op: op, Err: err}
}

// notFoundOr возвращает NotFoundError для sql.ErrNoRows, иначе классифицирует ошибку.
func notFoundOr(op, entity, table string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Entity: entity, ID: id}
	}
	return classify(op, entity, table, err)
}

// conflictField находит колонку по имени нарушенного ограничения
// (миграции называют их <table>_<column>_key).
func conflictField(table, constraint string) string {
	if e, ok := schema.Define().Entity(table); ok {
		for _, f := range e.UniqueFields() {
			if schema.UniqueConstraintName(table, f.Name) == constraint {
				return f.Name
			}
		}
	}
	return "value"
}
