package api

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/domain"
)

// Template DTOs

// CreateTemplateRequest — запрос на создание шаблона.
type CreateTemplateRequest struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateTemplateRequest — запрос на обновление метаданных шаблона.
type UpdateTemplateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsArchived  *bool   `json:"is_archived,omitempty"`
}

// Topic DTOs

// CreateTopicRequest — запрос на создание топика.
// SortOrder — позиция вставки; последующие топики сдвигаются.
type CreateTopicRequest struct {
	SortOrder int `json:"sort_order"`
}

// UpdateTopicRequest — запрос на обновление топика.
type UpdateTopicRequest struct {
	Title     *string `json:"title,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
	IsEnabled *bool   `json:"is_enabled,omitempty"`
}

// UpdateTopicOrderRequest — новый порядок топиков шаблона.
type UpdateTopicOrderRequest struct {
	TopicIDs []uuid.UUID `json:"topic_ids"`
}

// UpdateFieldTopicRequest — новый состав и порядок полей топика.
type UpdateFieldTopicRequest struct {
	QuestionIDs []string `json:"question_ids"`
}

// Question DTOs

// CreateQuestionRequest — запрос на создание вопроса.
type CreateQuestionRequest struct {
	Category string `json:"category"`
	DataType string `json:"data_type"`
}

// UpdateQuestionRequest — запрос на обновление вопроса.
type UpdateQuestionRequest struct {
	NaturalKey *string         `json:"natural_key,omitempty"`
	Question   *string         `json:"question,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// UpdateQuestionRelRequest — запрос на подключение или изменение поля шаблона.
type UpdateQuestionRelRequest struct {
	TopicID         *uuid.UUID              `json:"topic_id,omitempty"`
	SortOrder       *int                    `json:"sort_order,omitempty"`
	Config          json.RawMessage         `json:"config,omitempty"`
	Dependency      *domain.FieldDependency `json:"dependency,omitempty"`
	ClearDependency bool                    `json:"clear_dependency,omitempty"`
}

// Questionary DTOs

// CreateQuestionaryRequest — запрос на создание анкеты.
// CreatorID по умолчанию берётся из X-User-Id.
type CreateQuestionaryRequest struct {
	TemplateID uuid.UUID `json:"template_id"`
	CreatorID  *int64    `json:"creator_id,omitempty"`
}

// CloneQuestionaryRequest — запрос на клонирование анкеты.
type CloneQuestionaryRequest struct {
	CreatorID *int64 `json:"creator_id,omitempty"`
}

// UpdateAnswerRequest — запрос на запись ответа.
type UpdateAnswerRequest struct {
	Value string `json:"value"`
}

// UpdateTopicCompletenessRequest — запрос на установку флага заполненности.
type UpdateTopicCompletenessRequest struct {
	IsComplete bool `json:"is_complete"`
}
