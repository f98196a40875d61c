package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/domain"
	"github.com/jmoiron/sqlx"
)

var _ ports.Gateway = (*PostgresGateway)(nil)

// PostgresGateway реализует ports.Gateway поверх sqlx.
// Каждая сессия — отдельная транзакция READ COMMITTED.
type PostgresGateway struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresGateway(db *sqlx.DB, logger *slog.Logger) *PostgresGateway {
	return &PostgresGateway{db: db, logger: logger}
}

// WithSession открывает транзакцию на ctx запроса. Коммит только если fn вернула nil
// и ctx ещё жив; при ошибке или панике — откат.
func (g *PostgresGateway) WithSession(ctx context.Context, fn func(ctx context.Context, s ports.Session) error) (err error) {
	start := time.Now()

	tx, err := g.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		g.logger.Error("failed to begin transaction", "error", err)
		return &domain.StoreError{Op: "begin", Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			g.rollback(tx)
			panic(p)
		}
		if err != nil {
			g.rollback(tx)
			g.logger.Debug("session rolled back",
				"error", err,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			g.logger.Error("failed to commit transaction", "error", commitErr)
			err = &domain.StoreError{Op: "commit", Err: commitErr}
			return
		}
		g.logger.Debug("session committed", "duration_ms", time.Since(start).Milliseconds())
	}()

	err = fn(ctx, &session{tx: tx, logger: g.logger})
	if err == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = &domain.StoreError{Op: "session", Err: ctxErr}
		}
	}
	return err
}

func (g *PostgresGateway) rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		g.logger.Error("failed to rollback transaction", "error", err)
	}
}

func (g *PostgresGateway) Ping(ctx context.Context) error {
	if err := g.db.PingContext(ctx); err != nil {
		return &domain.StoreError{Op: "ping", Err: err}
	}
	return nil
}

func (g *PostgresGateway) Close() error {
	if err := g.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// session — реализация ports.Session внутри одной транзакции
type session struct {
	tx     *sqlx.Tx
	logger *slog.Logger
}
