package app

import (
	"context"
	"log/slog"

	"github.com/shaiso/Questionary/internal/events"
	"github.com/shaiso/Questionary/internal/mq"
)

// NewEventSink возвращает in-process очередь событий: события пишутся
// в лог и, если RabbitMQ доступен, публикуются в exchange событий.
//
// Вызывающий запускает sink.Run и закрывает возвращённое соединение
// (nil, если брокер недоступен).
func NewEventSink(ctx context.Context, name, amqpURL string, buffer int, logger *slog.Logger) (*events.ChannelSink, *mq.Connection) {
	handlers := []events.Handler{events.LogHandler(logger)}

	conn, err := mq.NewConnection(amqpURL, name, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, events are logged only", "error", err)
		return events.NewChannelSink(buffer, logger, handlers...), nil
	}

	// Публикация в необъявленный exchange закрывает канал
	if err := mq.SetupTopology(ctx, conn); err != nil {
		logger.Warn("rabbitmq topology setup failed, events are logged only", "error", err)
		_ = conn.Close()
		return events.NewChannelSink(buffer, logger, handlers...), nil
	}

	publisher := mq.NewEventSink(conn, logger)
	handlers = append(handlers, publisher.Publish)

	return events.NewChannelSink(buffer, logger, handlers...), conn
}
