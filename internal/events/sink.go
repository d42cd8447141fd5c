package events

import (
	"context"
	"errors"
	"log/slog"
)

// ErrSinkFull — буфер ChannelSink заполнен.
var ErrSinkFull = errors.New("event sink buffer is full")

// Sink принимает доменные события.
type Sink interface {
	Publish(ctx context.Context, e *Event) error
}

// Handler — обработчик события из ChannelSink.
type Handler func(ctx context.Context, e *Event) error

// NopSink отбрасывает все события.
type NopSink struct{}

// Publish реализует Sink.
func (NopSink) Publish(context.Context, *Event) error { return nil }

// Fanout рассылает событие во все sink'и и возвращает объединённую ошибку.
type Fanout []Sink

// Publish реализует Sink.
func (f Fanout) Publish(ctx context.Context, e *Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChannelSink — in-process очередь событий.
//
// Publish не блокируется: при заполненном буфере возвращается ErrSinkFull.
// Run читает очередь и вызывает обработчики по порядку.
type ChannelSink struct {
	ch       chan *Event
	handlers []Handler
	logger   *slog.Logger
}

// NewChannelSink создаёт ChannelSink с буфером size.
func NewChannelSink(size int, logger *slog.Logger, handlers ...Handler) *ChannelSink {
	if size <= 0 {
		size = 256
	}
	return &ChannelSink{
		ch:       make(chan *Event, size),
		handlers: handlers,
		logger:   logger,
	}
}

// Publish реализует Sink.
func (s *ChannelSink) Publish(ctx context.Context, e *Event) error {
	select {
	case s.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSinkFull
	}
}

// Run обрабатывает события до отмены контекста.
// Перед выходом обрабатывает то, что уже лежит в буфере.
func (s *ChannelSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return ctx.Err()
		case e := <-s.ch:
			s.dispatch(ctx, e)
		}
	}
}

func (s *ChannelSink) drain() {
	for {
		select {
		case e := <-s.ch:
			s.dispatch(context.Background(), e)
		default:
			return
		}
	}
}

func (s *ChannelSink) dispatch(ctx context.Context, e *Event) {
	for _, h := range s.handlers {
		if err := h(ctx, e); err != nil {
			s.logger.Error("event handler failed",
				"event_id", e.ID,
				"type", e.Type,
				"error", err,
			)
		}
	}
}

// LogHandler пишет события в лог.
func LogHandler(logger *slog.Logger) Handler {
	return func(_ context.Context, e *Event) error {
		logger.Info("event",
			"event_id", e.ID,
			"type", e.Type,
			"key", e.Key,
			"is_rejection", e.IsRejection,
			"reason", e.Reason,
		)
		return nil
	}
}
