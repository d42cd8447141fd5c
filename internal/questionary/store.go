package questionary

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/domain"
)

// Store — порт хранилища анкет.
//
// Реализации: repo.QuestionaryRepo (PostgreSQL) и sqlite.Store.
// Отсутствующие записи возвращаются как repo.ErrNotFound,
// нарушения ссылочной целостности — как repo.ErrInvalidState.
type Store interface {
	// Create сохраняет новую анкету. ErrNotFound, если шаблона нет.
	Create(ctx context.Context, q *domain.Questionary) error

	// GetQuestionary возвращает анкету по ID.
	GetQuestionary(ctx context.Context, id uuid.UUID) (*domain.Questionary, error)

	// GetQuestionarySteps собирает шаги анкеты: топики шаблона,
	// ответы и флаги заполненности.
	GetQuestionarySteps(ctx context.Context, id uuid.UUID) ([]domain.QuestionaryStep, error)

	// GetBlankQuestionarySteps возвращает шаги шаблона без ответов.
	// ErrNotFound, если шаблона нет.
	GetBlankQuestionarySteps(ctx context.Context, templateID uuid.UUID) ([]domain.QuestionaryStep, error)

	// GetParentQuestionary возвращает анкету-источник или nil, nil.
	// ErrNotFound, если нет самой дочерней анкеты.
	GetParentQuestionary(ctx context.Context, childID uuid.UUID) (*domain.Questionary, error)

	// UpdateAnswer записывает ответ (upsert по questionary_id, question_id).
	// ErrNotFound, если вопрос не подключён к шаблону анкеты.
	UpdateAnswer(ctx context.Context, answer *domain.Answer) error

	// UpdateTopicCompleteness записывает флаг заполненности топика.
	// ErrNotFound, если топик не принадлежит шаблону анкеты.
	UpdateTopicCompleteness(ctx context.Context, tc *domain.TopicCompleteness) error

	// Delete удаляет анкету вместе с ответами и возвращает удалённую запись.
	Delete(ctx context.Context, id uuid.UUID) (*domain.Questionary, error)

	// Clone создаёт clone (TemplateID берётся из источника) и копирует
	// ответы и флаги заполненности. ErrNotFound, если источника нет.
	Clone(ctx context.Context, sourceID uuid.UUID, clone *domain.Questionary) error
}
