// questionary-events — потребитель событий из RabbitMQ.
//
// Объявляет топологию (exchange, очередь events.log, DLQ) и записывает
// каждое событие в журнал event_logs. Повторная доставка идемпотентна.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/shaiso/Questionary/internal/app"
	"github.com/shaiso/Questionary/internal/config"
	"github.com/shaiso/Questionary/internal/events"
	"github.com/shaiso/Questionary/internal/mq"
	"github.com/shaiso/Questionary/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting questionary-events")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		config.Exitf("storage: %v", err)
	}
	defer stores.Close()

	conn, err := mq.NewConnection(cfg.AMQPURL, "questionary-events", logger)
	if err != nil {
		config.Exitf("rabbitmq: %v", err)
	}
	defer conn.Close()

	if err := mq.SetupTopology(ctx, conn); err != nil {
		config.Exitf("rabbitmq topology: %v", err)
	}
	logger.Info("rabbitmq topology ready", "topology", mq.TopologyInfo())

	consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
		Queue:    mq.QueueEventsLog,
		Prefetch: 16,
		Handler: func(ctx context.Context, e *events.Event) error {
			return stores.EventLog.InsertEvent(ctx, e)
		},
	})

	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("consumer stopped", "error", err)
			cancel()
		}
	}()

	health := func(ctx context.Context) error {
		if !conn.IsConnected() {
			return mq.ErrNotConnected
		}
		return stores.Ping(ctx)
	}

	if err := app.Serve(ctx, logger, cfg.EventsPort, app.NewMux(health)); err != nil {
		logger.Error("server error", "error", err)
	}

	logger.Info("stopped")
}
