// questionary-janitor — периодическое удаление заброшенных черновиков:
// анкет без ответов и без клонов, созданных раньше JANITOR_RETENTION.
//
// С PostgreSQL проход выполняется под advisory lock, поэтому можно
// запускать несколько экземпляров.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/shaiso/Questionary/internal/app"
	"github.com/shaiso/Questionary/internal/config"
	"github.com/shaiso/Questionary/internal/janitor"
	"github.com/shaiso/Questionary/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting questionary-janitor",
		"schedule", cfg.JanitorSchedule,
		"retention", cfg.JanitorRetention,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		config.Exitf("storage: %v", err)
	}
	defer stores.Close()

	sink, conn := app.NewEventSink(ctx, "questionary-janitor", cfg.AMQPURL, cfg.EventBuffer, logger)
	if conn != nil {
		defer conn.Close()
	}
	go func() { _ = sink.Run(ctx) }()

	j, err := janitor.New(janitor.Config{
		Store:     stores.Stale,
		Locker:    stores.Locker,
		Sink:      sink,
		Logger:    logger,
		Schedule:  cfg.JanitorSchedule,
		Retention: cfg.JanitorRetention,
	})
	if err != nil {
		config.Exitf("janitor: %v", err)
	}

	go func() {
		if err := j.Start(ctx); err != nil {
			logger.Error("janitor stopped", "error", err)
			cancel()
		}
	}()

	if err := app.Serve(ctx, logger, cfg.JanitorPort, app.NewMux(stores.Ping)); err != nil {
		logger.Error("server error", "error", err)
	}
	logger.Info("stopped")
}
