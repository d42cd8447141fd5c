// Package app собирает зависимости бинарников questionary-* из конфигурации:
// хранилище по DB_DRIVER, синк событий и HTTP-эндпоинты /healthz и /metrics.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Questionary/internal/catalog"
	"github.com/shaiso/Questionary/internal/config"
	"github.com/shaiso/Questionary/internal/events"
	"github.com/shaiso/Questionary/internal/janitor"
	"github.com/shaiso/Questionary/internal/questionary"
	"github.com/shaiso/Questionary/internal/repo"
	"github.com/shaiso/Questionary/internal/repo/sqlite"
)

// janitorLockKey — ключ advisory lock, под которым работает janitor.
const janitorLockKey int64 = 7340071

// EventLog — журнал доставленных событий.
type EventLog interface {
	InsertEvent(ctx context.Context, e *events.Event) error
}

// Stores — порты хранилища для выбранного драйвера.
type Stores struct {
	Catalog       catalog.Store
	Questionaries questionary.Store
	EventLog      EventLog
	Stale         janitor.Store

	// Locker — nil для SQLite (один процесс на файл).
	Locker janitor.Locker

	ping  func(ctx context.Context) error
	close func()
}

// OpenStores открывает хранилище по cfg.DBDriver и применяет миграции.
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("opened sqlite store", "path", cfg.SQLitePath)

		return &Stores{
			Catalog:       store,
			Questionaries: store,
			EventLog:      store,
			Stale:         store,
			ping:          store.Ping,
			close:         func() { _ = store.Close() },
		}, nil

	case config.DriverPostgres:
		pool, err := repo.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := repo.Migrate(pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("connected to database", "max_conns", cfg.DBMaxConns)

		questionaries := repo.NewQuestionaryRepo(pool)
		return &Stores{
			Catalog:       repo.NewTemplateRepo(pool),
			Questionaries: questionaries,
			EventLog:      repo.NewEventLogRepo(pool),
			Stale:         questionaries,
			Locker:        repo.NewAdvisoryLock(pool, janitorLockKey),
			ping:          pool.Ping,
			close:         pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

// Ping проверяет доступность хранилища.
func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close освобождает соединения.
func (s *Stores) Close() {
	s.close()
}
