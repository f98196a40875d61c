package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/BookCatalog/internal/config"
	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/metrics"
	"github.com/GoArmGo/BookCatalog/internal/usecase"
)

// Режимы запуска
const (
	ModeServer  = "server"
	ModeWorker  = "worker"
	ModeMigrate = "migrate"
	ModeSeed    = "seed"
)

// Migrator — то, что приложению нужно от менеджера схемы.
type Migrator interface {
	Apply(ctx context.Context) error
	Version() (version uint, dirty bool, err error)
	Close() error
}

// Deps — собранные в di зависимости.
// Migrator равен nil для хранилища в памяти, Consumer — когда брокер не настроен.
type Deps struct {
	Config    *config.Config
	Logger    *slog.Logger
	Gateway   ports.Gateway
	Migrator  Migrator
	Catalog   usecase.CatalogUseCase
	Users     usecase.UserUseCase
	Audit     usecase.AuditUseCase
	Publisher ports.CatalogEventPublisher
	Consumer  ports.CatalogEventConsumer
	Metrics   *metrics.Metrics
}

type App struct {
	Deps
}

func NewApp(d Deps) *App {
	return &App{Deps: d}
}

// LoggerIns возвращает основной логгер приложения
func (a *App) LoggerIns() *slog.Logger {
	return a.Logger
}

// Run выполняет выбранный режим и блокируется до его завершения
// (для server и worker — до SIGINT/SIGTERM). Ресурсы освобождаются в любом случае.
func (a *App) Run(ctx context.Context, mode string) (err error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if closeErr := a.Shutdown(); closeErr != nil {
			a.Logger.Error("shutdown finished with errors", "error", closeErr)
			err = errors.Join(err, closeErr)
		}
	}()

	a.Logger.Info("starting", "mode", mode)

	switch mode {
	case ModeServer:
		if a.Config.AutoMigrate {
			if err := a.migrate(ctx); err != nil {
				return err
			}
		}
		return runServer(ctx, a.Config, a.router(), a.Logger)

	case ModeWorker:
		if a.Consumer == nil {
			return fmt.Errorf("worker mode requires RABBITMQ_URL")
		}
		return runWorker(ctx, a.Audit, a.Consumer, a.Metrics, a.Logger)

	case ModeMigrate:
		return a.migrate(ctx)

	case ModeSeed:
		if a.Config.AutoMigrate {
			if err := a.migrate(ctx); err != nil {
				return err
			}
		}
		n, err := a.Catalog.Seed(ctx)
		if err != nil {
			return err
		}
		a.Logger.Info("seed finished", "books_added", n)
		return nil

	default:
		return fmt.Errorf("unknown mode %q (use server, worker, migrate or seed)", mode)
	}
}

func (a *App) migrate(ctx context.Context) error {
	if a.Migrator == nil {
		a.Logger.Info("schema migrations skipped: in-memory store")
		return nil
	}
	if err := a.Migrator.Apply(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := a.Migrator.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	a.Logger.Info("schema is up to date", "version", version, "dirty", dirty)
	return nil
}

// Shutdown закрывает все ресурсы приложения
func (a *App) Shutdown() error {
	var errs []error
	closeIfCloser := func(name string, v any) {
		if c, ok := v.(io.Closer); ok && c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}

	closeIfCloser("publisher", a.Publisher)
	// publisher и consumer могут быть одним клиентом
	if any(a.Consumer) != any(a.Publisher) {
		closeIfCloser("consumer", a.Consumer)
	}
	if a.Migrator != nil {
		if err := a.Migrator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close migrator: %w", err))
		}
	}
	if a.Gateway != nil {
		if err := a.Gateway.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close gateway: %w", err))
		}
	}

	a.Logger.Info("resources released")
	return errors.Join(errs...)
}
