package mq

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Questionary/internal/events"
	"github.com/shaiso/Questionary/internal/telemetry"
)

// Handler — функция обработки события.
// Возвращает error, если обработка не удалась (сообщение будет nack).
type Handler func(ctx context.Context, e *events.Event) error

// Consumer потребляет события из очереди RabbitMQ.
//
// Нераспознанное сообщение сразу уходит в DLQ. Ошибка обработчика
// возвращает сообщение в очередь один раз; повторная ошибка на
// переотправленном сообщении отправляет его в DLQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue Queue

	// Handler — обработчик событий.
	Handler Handler

	// Prefetch — количество сообщений для предварительной загрузки.
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start запускает потребление и блокируется до отмены ctx.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	return c.consume(ctx)
}

func (c *Consumer) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, err := c.setupConsume(ctx)
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
				continue
			}
		}

		c.logger.Info("consumer started", "queue", c.queue)

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, reconnecting", "queue", c.queue)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}
	}
}

func (c *Consumer) setupConsume(ctx context.Context) (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery
	err := c.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}

		var err error
		deliveries, err = ch.Consume(
			string(c.queue), // queue
			"",              // consumer tag (auto-generated)
			false,           // auto-ack (ack вручную после записи)
			false,           // exclusive
			false,           // no-local
			false,           // no-wait
			nil,             // args
		)
		if err != nil {
			return fmt.Errorf("consume: %w", err)
		}
		return nil
	})
	return deliveries, err
}

func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.settle(raw, c.handle(ctx, raw.Body, raw.Redelivered))
		}
	}
}

// verdict — решение по доставленному сообщению.
type verdict int

const (
	verdictAck verdict = iota
	verdictRequeue
	verdictDeadLetter
)

func (c *Consumer) handle(ctx context.Context, body []byte, redelivered bool) verdict {
	e, err := decodeEvent(body)
	if err != nil {
		c.logger.Error("failed to decode event",
			"queue", c.queue,
			"error", err,
			"body", string(body),
		)
		telemetry.EventsConsumedTotal.WithLabelValues("malformed").Inc()
		return verdictDeadLetter
	}

	c.logger.Debug("received event",
		"queue", c.queue,
		"event_id", e.ID,
		"type", e.Type,
	)

	if err := c.handler(ctx, e); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"event_id", e.ID,
			"type", e.Type,
			"redelivered", redelivered,
			"error", err,
		)
		telemetry.EventsConsumedTotal.WithLabelValues("error").Inc()
		if redelivered {
			return verdictDeadLetter
		}
		return verdictRequeue
	}

	telemetry.EventsConsumedTotal.WithLabelValues("ok").Inc()
	return verdictAck
}

func (c *Consumer) settle(raw amqp.Delivery, v verdict) {
	var err error
	switch v {
	case verdictAck:
		err = raw.Ack(false)
	case verdictRequeue:
		err = raw.Nack(false, true)
	case verdictDeadLetter:
		err = raw.Nack(false, false)
	}
	if err != nil {
		c.logger.Warn("failed to settle delivery", "queue", c.queue, "error", err)
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}
