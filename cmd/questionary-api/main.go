// questionary-api — HTTP API каталога шаблонов и анкет.
//
// Конфигурация — переменные окружения (см. internal/config).
// События мутаций пишутся в лог и публикуются в RabbitMQ, если он доступен.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/shaiso/Questionary/internal/api"
	"github.com/shaiso/Questionary/internal/app"
	"github.com/shaiso/Questionary/internal/catalog"
	"github.com/shaiso/Questionary/internal/config"
	"github.com/shaiso/Questionary/internal/questionary"
	"github.com/shaiso/Questionary/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting questionary-api", "db_driver", cfg.DBDriver)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		config.Exitf("storage: %v", err)
	}
	defer stores.Close()

	sink, conn := app.NewEventSink(ctx, "questionary-api", cfg.AMQPURL, cfg.EventBuffer, logger)
	if conn != nil {
		defer conn.Close()
	}
	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		_ = sink.Run(ctx)
	}()

	handler := api.NewHandler(api.Config{
		Catalog: catalog.NewService(catalog.Config{
			Store:  stores.Catalog,
			Sink:   sink,
			Logger: logger,
		}),
		Questionaries: questionary.NewService(questionary.Config{
			Store:  stores.Questionaries,
			Sink:   sink,
			Logger: logger,
		}),
		Logger: logger,
	})

	mux := app.NewMux(stores.Ping)
	handler.RegisterRoutes(mux)

	if err := app.Serve(ctx, logger, cfg.APIPort, mux); err != nil {
		logger.Error("server error", "error", err)
	}

	// Дожидаемся, пока очередь событий опустеет
	cancel()
	<-sinkDone
	logger.Info("stopped")
}
