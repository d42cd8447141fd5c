package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/rejection"
)

// Type — тип доменного события.
type Type string

// Типы событий анкет.
const (
	TypeQuestionaryCreated        Type = "QUESTIONARY_CREATED"
	TypeQuestionaryCloned         Type = "QUESTIONARY_CLONED"
	TypeQuestionaryDeleted        Type = "QUESTIONARY_DELETED"
	TypeAnswerUpdated             Type = "ANSWER_UPDATED"
	TypeTopicCompletenessUpdated  Type = "TOPIC_COMPLETENESS_UPDATED"
	TypeStaleQuestionariesRemoved Type = "STALE_QUESTIONARIES_REMOVED"
)

// Типы событий каталога шаблонов.
const (
	TypeTemplateCreated      Type = "TEMPLATE_CREATED"
	TypeTemplateUpdated      Type = "TEMPLATE_UPDATED"
	TypeTemplateDeleted      Type = "TEMPLATE_DELETED"
	TypeTopicCreated         Type = "TOPIC_CREATED"
	TypeTopicUpdated         Type = "TOPIC_UPDATED"
	TypeTopicDeleted         Type = "TOPIC_DELETED"
	TypeTopicOrderUpdated    Type = "TOPIC_ORDER_UPDATED"
	TypeQuestionCreated      Type = "QUESTION_CREATED"
	TypeQuestionUpdated      Type = "QUESTION_UPDATED"
	TypeQuestionDeleted      Type = "QUESTION_DELETED"
	TypeQuestionRelUpdated   Type = "QUESTION_REL_UPDATED"
	TypeQuestionRelDeleted   Type = "QUESTION_REL_DELETED"
	TypeFieldTopicRelUpdated Type = "FIELD_TOPIC_REL_UPDATED"
)

// String возвращает строковое представление Type.
func (t Type) String() string {
	return string(t)
}

// Subject — результат мутации, о котором публикуется событие.
//
// EventKey должен работать на nil-указателе: ключ берётся
// из объявленного типа результата, даже если мутация вернула отказ.
type Subject interface {
	EventKey() string
}

// Event — доменное событие.
type Event struct {
	// ID — уникальный идентификатор события.
	ID uuid.UUID `json:"id"`

	// Type — тип события.
	Type Type `json:"type"`

	// Key — ключ сущности ("questionary", "answer", "template", ...).
	Key string `json:"key"`

	// Subject — результат мутации; nil для отказов.
	Subject any `json:"subject,omitempty"`

	// ActorID — пользователь, выполнивший мутацию (если известен).
	ActorID *int64 `json:"actor_id,omitempty"`

	// IsRejection — мутация завершилась отказом.
	IsRejection bool `json:"is_rejection"`

	// Reason — код причины отказа.
	Reason rejection.Reason `json:"reason,omitempty"`

	// OccurredAt — время события.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent создаёт событие по результату мутации.
func NewEvent(ctx context.Context, typ Type, key string, subject any, err error) *Event {
	e := &Event{
		ID:         uuid.New(),
		Type:       typ,
		Key:        key,
		OccurredAt: time.Now().UTC(),
	}

	if actor, ok := ActorFrom(ctx); ok {
		e.ActorID = &actor
	}

	if err != nil {
		e.IsRejection = true
		e.Reason = rejection.ReasonOf(err)
	} else {
		e.Subject = subject
	}

	return e
}

type actorKey struct{}

// WithActor сохраняет ID пользователя в контексте.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom извлекает ID пользователя из контекста.
func ActorFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey{}).(int64)
	return id, ok
}
