package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Questionary/internal/events"
	"github.com/shaiso/Questionary/internal/telemetry"
)

// Store удаляет заброшенные черновики. Реализации:
// repo.QuestionaryRepo и sqlite.Store.
type Store interface {
	DeleteStaleQuestionaries(ctx context.Context, before time.Time) (int64, error)
}

// Locker — межпроцессная блокировка прохода.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

// SweepResult — итог прохода очистки.
type SweepResult struct {
	Before  time.Time `json:"before"`
	Deleted int64     `json:"deleted"`
}

// EventKey реализует events.Subject.
func (*SweepResult) EventKey() string { return "janitor" }

// Config — конфигурация Janitor.
type Config struct {
	Store  Store
	Locker Locker // nil — без блокировки (одиночный экземпляр, SQLite)
	Sink   events.Sink
	Logger *slog.Logger

	// Schedule — cron-выражение (default: @hourly).
	Schedule string

	// Retention — возраст, после которого пустой черновик удаляется.
	Retention time.Duration

	Clock func() time.Time
}

// Janitor — периодическая очистка черновиков.
type Janitor struct {
	store     Store
	locker    Locker
	sink      events.Sink
	logger    *slog.Logger
	schedule  string
	retention time.Duration
	now       func() time.Time
}

// New создаёт новый Janitor.
func New(cfg Config) (*Janitor, error) {
	j := &Janitor{
		store:     cfg.Store,
		locker:    cfg.Locker,
		sink:      cfg.Sink,
		logger:    cfg.Logger,
		schedule:  cfg.Schedule,
		retention: cfg.Retention,
		now:       cfg.Clock,
	}
	if j.schedule == "" {
		j.schedule = "@hourly"
	}
	if err := ValidateSchedule(j.schedule); err != nil {
		return nil, err
	}
	if j.retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", j.retention)
	}
	if j.sink == nil {
		j.sink = events.NopSink{}
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	if j.now == nil {
		j.now = time.Now
	}
	return j, nil
}

// Sweep выполняет один проход очистки.
// Возвращает nil без ошибки, если блокировка занята другим экземпляром.
func (j *Janitor) Sweep(ctx context.Context) (*SweepResult, error) {
	if j.locker != nil {
		unlock, ok, err := j.locker.TryLock(ctx)
		if err != nil {
			telemetry.JanitorRunsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("try lock: %w", err)
		}
		if !ok {
			telemetry.JanitorRunsTotal.WithLabelValues("skipped").Inc()
			j.logger.Debug("janitor lock is held by another instance, skipping")
			return nil, nil
		}
		defer unlock()
	}

	result, err := events.Wrap(j.sink, events.TypeStaleQuestionariesRemoved, func(ctx context.Context) (*SweepResult, error) {
		before := j.now().UTC().Add(-j.retention)
		deleted, err := j.store.DeleteStaleQuestionaries(ctx, before)
		if err != nil {
			return nil, fmt.Errorf("delete stale questionaries: %w", err)
		}
		return &SweepResult{Before: before, Deleted: deleted}, nil
	})(ctx)
	if err != nil {
		telemetry.JanitorRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	telemetry.JanitorRunsTotal.WithLabelValues("ok").Inc()
	telemetry.JanitorDeletedTotal.Add(float64(result.Deleted))
	j.logger.Info("janitor sweep completed",
		"before", result.Before,
		"deleted", result.Deleted,
	)
	return result, nil
}

// Start запускает проходы по расписанию и блокируется до отмены ctx.
// Ошибка прохода логируется и не останавливает расписание.
func (j *Janitor) Start(ctx context.Context) error {
	c := cron.New(cron.WithParser(cronParser), cron.WithLocation(time.UTC))

	_, err := c.AddFunc(j.schedule, func() {
		if _, err := j.Sweep(ctx); err != nil {
			j.logger.Error("janitor sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	if next, err := NextRun(j.schedule, j.now()); err == nil {
		j.logger.Info("janitor started", "schedule", j.schedule, "retention", j.retention, "next_run", next)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	j.logger.Info("janitor stopped")
	return nil
}
