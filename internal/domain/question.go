package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/fieldconfig"
)

// TemplateCategory — категория шаблонов и вопросов.
//
// Вопросы переиспользуются только внутри своей категории.
type TemplateCategory string

const (
	// TemplateCategoryProposalQuestionary — анкеты заявок.
	TemplateCategoryProposalQuestionary TemplateCategory = "PROPOSAL_QUESTIONARY"

	// TemplateCategorySampleDeclaration — декларации образцов.
	TemplateCategorySampleDeclaration TemplateCategory = "SAMPLE_DECLARATION"
)

// String возвращает строковое представление TemplateCategory.
func (c TemplateCategory) String() string {
	return string(c)
}

// ParseTemplateCategory парсит строку в TemplateCategory.
// Неизвестные значения приводятся к PROPOSAL_QUESTIONARY.
func ParseTemplateCategory(s string) TemplateCategory {
	switch s {
	case "SAMPLE_DECLARATION":
		return TemplateCategorySampleDeclaration
	default:
		return TemplateCategoryProposalQuestionary
	}
}

// Question — переиспользуемое определение вопроса.
//
// Вопрос принадлежит каталогу шаблонов и подключается к шаблонам
// через QuestionTemplateRelation. Ответы ссылаются на ID вопроса,
// поэтому ID не меняется после создания.
type Question struct {
	// ID — строковый ключ (например, "text_input_1591802394000_1a2b3c4d").
	ID string `json:"id"`

	// CategoryID — категория, в которой вопрос доступен.
	CategoryID TemplateCategory `json:"category_id"`

	// NaturalKey — человекочитаемый уникальный ключ.
	NaturalKey string `json:"natural_key"`

	// DataType — тип поля.
	DataType fieldconfig.DataType `json:"data_type"`

	// Question — текст вопроса.
	Question string `json:"question"`

	// Config — конфигурация по умолчанию; копируется в relation при подключении.
	Config fieldconfig.Config `json:"config"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventKey реализует events.Subject.
func (*Question) EventKey() string { return "question" }

// QuestionTemplateRelation — вопрос, подключённый к шаблону.
//
// Хранит размещение (топик, порядок), конфигурацию в рамках шаблона
// и необязательное правило зависимости.
type QuestionTemplateRelation struct {
	Question Question `json:"question"`

	// TemplateID — шаблон, к которому подключён вопрос.
	TemplateID uuid.UUID `json:"template_id"`

	// TopicID — топик внутри шаблона.
	TopicID uuid.UUID `json:"topic_id"`

	// SortOrder — порядок внутри топика.
	SortOrder int `json:"sort_order"`

	// Config — конфигурация поля в этом шаблоне.
	Config fieldconfig.Config `json:"config"`

	// Dependency — правило видимости (nil — поле видно всегда).
	Dependency *FieldDependency `json:"dependency,omitempty"`
}

// EventKey реализует events.Subject.
func (*QuestionTemplateRelation) EventKey() string { return "questionrel" }

// QuestionID возвращает ID подключённого вопроса.
func (r *QuestionTemplateRelation) QuestionID() string {
	return r.Question.ID
}
