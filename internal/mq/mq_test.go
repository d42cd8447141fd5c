package mq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shaiso/Questionary/internal/domain"
	"github.com/shaiso/Questionary/internal/events"
	"github.com/shaiso/Questionary/internal/rejection"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRoutingKeyFor(t *testing.T) {
	tests := []struct {
		typ  events.Type
		want RoutingKey
	}{
		{events.TypeAnswerUpdated, "answer.updated"},
		{events.TypeQuestionRelDeleted, "question.rel.deleted"},
		{events.TypeStaleQuestionariesRemoved, "stale.questionaries.removed"},
	}

	for _, tt := range tests {
		if got := RoutingKeyFor(tt.typ); got != tt.want {
			t.Errorf("RoutingKeyFor(%s) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	ctx := events.WithActor(context.Background(), 5)
	e := events.NewEvent(ctx, events.TypeTemplateCreated, "template", &domain.Template{Name: "Proposal"}, nil)

	msg, err := encodeEvent(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.MessageId != e.ID.String() || msg.Type != "TEMPLATE_CREATED" {
		t.Errorf("unexpected publishing headers: %+v", msg)
	}

	decoded, err := decodeEvent(msg.Body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.ID != e.ID || decoded.Type != e.Type || decoded.Key != "template" {
		t.Errorf("unexpected event: %+v", decoded)
	}
	if decoded.ActorID == nil || *decoded.ActorID != 5 {
		t.Error("actor should survive the broker")
	}
}

func TestDecodeEvent_Rejection(t *testing.T) {
	e := events.NewEvent(context.Background(), events.TypeAnswerUpdated, "answer", nil,
		rejection.New(rejection.ReasonNotFound, "questionary not found"))

	msg, err := encodeEvent(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := decodeEvent(msg.Body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decoded.IsRejection || decoded.Reason != rejection.ReasonNotFound {
		t.Errorf("rejection lost: %+v", decoded)
	}
}

func TestConsumer_Handle(t *testing.T) {
	valid, err := encodeEvent(events.NewEvent(context.Background(), events.TypeQuestionaryCreated, "questionary", nil, nil))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	failing := errors.New("db down")

	tests := []struct {
		name        string
		body        []byte
		handlerErr  error
		redelivered bool
		want        verdict
	}{
		{name: "ok", body: valid.Body, want: verdictAck},
		{name: "malformed", body: []byte("{"), want: verdictDeadLetter},
		{name: "missing type", body: []byte(`{"key":"answer"}`), want: verdictDeadLetter},
		{name: "first failure", body: valid.Body, handlerErr: failing, want: verdictRequeue},
		{name: "repeated failure", body: valid.Body, handlerErr: failing, redelivered: true, want: verdictDeadLetter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsumer(nil, discardLogger(), ConsumerConfig{
				Queue: QueueEventsLog,
				Handler: func(context.Context, *events.Event) error {
					return tt.handlerErr
				},
			})

			if got := c.handle(context.Background(), tt.body, tt.redelivered); got != tt.want {
				t.Errorf("expected verdict %d, got %d", tt.want, got)
			}
		})
	}
}
