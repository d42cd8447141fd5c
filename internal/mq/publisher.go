package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Questionary/internal/events"
)

// EventSink публикует доменные события в ExchangeEvents.
// Реализует events.Sink.
type EventSink struct {
	conn   *Connection
	logger *slog.Logger
}

// NewEventSink создаёт новый EventSink.
func NewEventSink(conn *Connection, logger *slog.Logger) *EventSink {
	return &EventSink{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует событие с routing key по его типу.
func (s *EventSink) Publish(ctx context.Context, e *events.Event) error {
	msg, err := encodeEvent(e)
	if err != nil {
		return err
	}
	routingKey := RoutingKeyFor(e.Type)

	return s.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangeEvents), // exchange
			string(routingKey),     // routing key
			false,                  // mandatory
			false,                  // immediate
			msg,
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", ExchangeEvents, routingKey, err)
		}

		s.logger.Debug("published event",
			"routing_key", routingKey,
			"event_id", e.ID,
			"type", e.Type,
		)
		return nil
	})
}

func encodeEvent(e *events.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // событие переживёт рестарт RabbitMQ
		MessageId:    e.ID.String(),
		Type:         e.Type.String(),
		Timestamp:    e.OccurredAt,
		Body:         body,
	}, nil
}

func decodeEvent(body []byte) (*events.Event, error) {
	var e events.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("event without type")
	}
	return &e, nil
}
