package events

import (
	"context"

	"github.com/shaiso/Questionary/internal/telemetry"
)

// Mutation — операция, результат которой публикуется как событие.
type Mutation[T Subject] func(ctx context.Context) (T, error)

// Wrap оборачивает мутацию публикацией события типа typ.
//
// Ключ события берётся из объявленного типа T, а не из значения,
// поэтому отказ (нулевой T) публикуется с тем же ключом.
func Wrap[T Subject](sink Sink, typ Type, mutation Mutation[T]) Mutation[T] {
	return func(ctx context.Context) (T, error) {
		result, err := mutation(ctx)

		var zero T
		var subject any
		if err == nil {
			subject = result
		}

		Emit(ctx, sink, NewEvent(ctx, typ, zero.EventKey(), subject, err))

		return result, err
	}
}

// Emit передаёт событие в sink. Ошибка публикации только логируется.
func Emit(ctx context.Context, sink Sink, e *Event) {
	if sink == nil {
		return
	}

	if err := sink.Publish(ctx, e); err != nil {
		telemetry.EventsPublishedTotal.WithLabelValues(string(e.Type), "error").Inc()
		telemetry.FromContext(ctx).Warn("failed to publish event",
			"event_id", e.ID,
			"type", e.Type,
			"error", err,
		)
		return
	}

	telemetry.EventsPublishedTotal.WithLabelValues(string(e.Type), "ok").Inc()
}
