package domain

import (
	"time"

	"github.com/google/uuid"
)

// Template — упорядоченный набор топиков с вопросами.
//
// Шаблон — справочные данные каталога. Анкеты (Questionary) ссылаются
// на шаблон, но никогда его не изменяют.
type Template struct {
	// ID — уникальный идентификатор шаблона.
	ID uuid.UUID `json:"id"`

	// CategoryID — категория шаблона.
	CategoryID TemplateCategory `json:"category_id"`

	// Name — название шаблона.
	Name string `json:"name"`

	// Description — описание шаблона.
	Description string `json:"description"`

	// IsArchived — архивные шаблоны не предлагаются для новых анкет.
	IsArchived bool `json:"is_archived"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// Steps — топики с вопросами. Заполняется только при явной загрузке.
	Steps []TemplateStep `json:"steps,omitempty"`
}

// EventKey реализует events.Subject.
func (*Template) EventKey() string { return "template" }

// Topic — именованная группа вопросов внутри шаблона.
type Topic struct {
	ID         uuid.UUID `json:"id"`
	TemplateID uuid.UUID `json:"template_id"`
	Title      string    `json:"title"`
	SortOrder  int       `json:"sort_order"`
	IsEnabled  bool      `json:"is_enabled"`
}

// EventKey реализует events.Subject.
func (*Topic) EventKey() string { return "topic" }

// TemplateStep — топик шаблона с подключёнными вопросами (по SortOrder).
type TemplateStep struct {
	Topic  Topic                      `json:"topic"`
	Fields []QuestionTemplateRelation `json:"fields"`
}

// Relations возвращает все подключённые вопросы шаблона в порядке шагов.
func Relations(steps []TemplateStep) []QuestionTemplateRelation {
	var rels []QuestionTemplateRelation
	for _, step := range steps {
		rels = append(rels, step.Fields...)
	}
	return rels
}

// TemplateFilter — фильтр для списка шаблонов.
type TemplateFilter struct {
	Category *TemplateCategory
	Archived *bool
}

// FindRelation возвращает подключённый вопрос по ID или nil.
func FindRelation(steps []TemplateStep, questionID string) *QuestionTemplateRelation {
	for i := range steps {
		for j := range steps[i].Fields {
			if steps[i].Fields[j].Question.ID == questionID {
				return &steps[i].Fields[j]
			}
		}
	}
	return nil
}

// FindTopic возвращает топик шаблона по ID или nil.
func FindTopic(steps []TemplateStep, topicID uuid.UUID) *Topic {
	for i := range steps {
		if steps[i].Topic.ID == topicID {
			return &steps[i].Topic
		}
	}
	return nil
}

// TopicOrder — новый порядок топиков шаблона.
type TopicOrder struct {
	TopicIDs []uuid.UUID `json:"topic_ids"`
}

// EventKey реализует events.Subject.
func (*TopicOrder) EventKey() string { return "topicorder" }

// FieldTopicOrder — вопросы, переназначенные в топик, в новом порядке.
type FieldTopicOrder struct {
	TemplateID  uuid.UUID `json:"template_id"`
	TopicID     uuid.UUID `json:"topic_id"`
	QuestionIDs []string  `json:"question_ids"`
}

// EventKey реализует events.Subject.
func (*FieldTopicOrder) EventKey() string { return "fieldtopicrel" }
