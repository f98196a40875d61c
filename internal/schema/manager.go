package schema

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/GoArmGo/BookCatalog/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migration — одна встроенная миграция.
type Migration struct {
	Version uint
	Name    string
}

// Migrations перечисляет встроенные миграции по возрастанию версии.
func Migrations() ([]Migration, error) {
	src, err := newSource()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var out []Migration
	v, err := src.First()
	for err == nil {
		r, name, readErr := src.ReadUp(v)
		if readErr != nil {
			return nil, fmt.Errorf("read migration %d: %w", v, readErr)
		}
		r.Close()
		out = append(out, Migration{Version: v, Name: name})
		v, err = src.Next(v)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("enumerate migrations: %w", err)
	}
	return out, nil
}

func newSource() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return src, nil
}

// Manager применяет встроенные миграции к PostgreSQL через golang-migrate.
// Учёт применённых версий ведёт сам migrate (schema_migrations), поэтому
// повторный Apply ничего не меняет. Каждая миграция дополнительно пишет строку в schema_ledger.
type Manager struct {
	m      *migrate.Migrate
	logger *slog.Logger
}

// NewManager открывает отдельное соединение для миграций по databaseURL.
func NewManager(databaseURL string, logger *slog.Logger) (*Manager, error) {
	src, err := newSource()
	if err != nil {
		return nil, &domain.SchemaError{Op: "open source", Err: err}
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		logger.Error("failed to create migrator", "error", err)
		return nil, &domain.SchemaError{Op: "connect", Err: err}
	}
	m.Log = migrateLogger{logger: logger}

	return &Manager{m: m, logger: logger}, nil
}

// Apply доводит схему до последней версии. Отмена ctx останавливает миграции
// после текущего шага.
func (mg *Manager) Apply(ctx context.Context) error {
	start := time.Now()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			select {
			case mg.m.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()

	err := mg.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("schema is up to date", "duration_ms", time.Since(start).Milliseconds())
		return nil
	}
	if err != nil {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			mg.logger.Error("schema is dirty, manual intervention required", "version", dirty.Version)
			return &domain.SchemaError{Op: "apply", Err: fmt.Errorf("dirty schema at version %d: %w", dirty.Version, err)}
		}
		mg.logger.Error("failed to apply migrations", "error", err)
		return &domain.SchemaError{Op: "apply", Err: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.SchemaError{Op: "apply", Err: ctxErr}
	}

	version, _, _ := mg.m.Version()
	mg.logger.Info("migrations applied successfully",
		"version", version,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Version возвращает текущую версию схемы. Для пустой базы — 0.
func (mg *Manager) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &domain.SchemaError{Op: "version", Err: err}
	}
	return v, dirty, nil
}

func (mg *Manager) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// migrateLogger пробрасывает сообщения golang-migrate в slog.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "migrate")
}

func (l migrateLogger) Verbose() bool { return false }
