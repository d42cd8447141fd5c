package domain

import (
	"time"

	"github.com/google/uuid"
)

// Questionary — экземпляр шаблона, заполняемый одним автором.
//
// Создаётся один раз в контексте подачи заявки и никогда не
// перепривязывается к другому шаблону.
type Questionary struct {
	// ID — уникальный идентификатор анкеты.
	ID uuid.UUID `json:"id"`

	// TemplateID — шаблон, по которому создана анкета.
	TemplateID uuid.UUID `json:"template_id"`

	// CreatorID — пользователь, создавший анкету.
	CreatorID int64 `json:"creator_id"`

	// ParentID — анкета-источник, если эта анкета получена клонированием.
	ParentID *uuid.UUID `json:"parent_id,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// EventKey реализует events.Subject.
func (*Questionary) EventKey() string { return "questionary" }

// Answer — сохранённое значение одного вопроса в анкете.
//
// Уникален по (QuestionaryID, QuestionID); каждое обновление
// перезаписывает значение (last-write-wins).
type Answer struct {
	QuestionaryID uuid.UUID `json:"questionary_id"`
	QuestionID    string    `json:"question_id"`

	// Value — сериализованное значение (как прислал клиент).
	Value string `json:"value"`

	UpdatedAt time.Time `json:"updated_at"`
}

// EventKey реализует events.Subject.
func (*Answer) EventKey() string { return "answer" }

// TopicCompleteness — флаг заполненности топика, выставленный клиентом.
type TopicCompleteness struct {
	QuestionaryID uuid.UUID `json:"questionary_id"`
	TopicID       uuid.UUID `json:"topic_id"`
	IsComplete    bool      `json:"is_complete"`
}

// EventKey реализует events.Subject.
func (*TopicCompleteness) EventKey() string { return "topiccompleteness" }

// QuestionaryField — подключённый вопрос вместе с ответом.
type QuestionaryField struct {
	QuestionTemplateRelation

	// Value — ответ; пустая строка, если ответа нет.
	Value string `json:"value"`

	// IsVisible — выполнено ли правило зависимости (см. engine.ResolveVisibility).
	IsVisible bool `json:"is_visible"`
}

// QuestionaryStep — топик анкеты с ответами на его вопросы.
type QuestionaryStep struct {
	Topic      Topic              `json:"topic"`
	IsComplete bool               `json:"is_complete"`
	Fields     []QuestionaryField `json:"fields"`
}

// BuildSteps собирает шаги анкеты из шагов шаблона, ответов
// (questionID → значение) и флагов заполненности топиков.
// Вопросы без ответа получают пустое значение. nil-карты допустимы.
func BuildSteps(steps []TemplateStep, answers map[string]string, complete map[uuid.UUID]bool) []QuestionaryStep {
	result := make([]QuestionaryStep, len(steps))
	for i, step := range steps {
		fields := make([]QuestionaryField, len(step.Fields))
		for j, rel := range step.Fields {
			fields[j] = QuestionaryField{
				QuestionTemplateRelation: rel,
				Value:                    answers[rel.Question.ID],
				IsVisible:                true,
			}
		}
		result[i] = QuestionaryStep{
			Topic:      step.Topic,
			IsComplete: complete[step.Topic.ID],
			Fields:     fields,
		}
	}
	return result
}

// BlankSteps строит шаги без ответов из шагов шаблона.
func BlankSteps(steps []TemplateStep) []QuestionaryStep {
	return BuildSteps(steps, nil, nil)
}

// FindField возвращает поле по ID вопроса или nil.
func FindField(steps []QuestionaryStep, questionID string) *QuestionaryField {
	for i := range steps {
		for j := range steps[i].Fields {
			if steps[i].Fields[j].Question.ID == questionID {
				return &steps[i].Fields[j]
			}
		}
	}
	return nil
}
