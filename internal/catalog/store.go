package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/domain"
)

// Store — порт хранилища каталога шаблонов.
//
// Реализации: repo.TemplateRepo (PostgreSQL) и sqlite.Store.
// Удаление, нарушающее ссылочную целостность (от поля зависят другие
// поля, по шаблону созданы анкеты), возвращает repo.ErrInvalidState.
type Store interface {
	CreateTemplate(ctx context.Context, t *domain.Template) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error)
	ListTemplates(ctx context.Context, filter domain.TemplateFilter) ([]domain.Template, error)
	UpdateTemplate(ctx context.Context, t *domain.Template) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error)
	GetTemplateSteps(ctx context.Context, templateID uuid.UUID) ([]domain.TemplateStep, error)

	// CreateTopic вставляет топик на позицию SortOrder, сдвигая последующие.
	CreateTopic(ctx context.Context, topic *domain.Topic) error
	GetTopic(ctx context.Context, id uuid.UUID) (*domain.Topic, error)
	UpdateTopic(ctx context.Context, topic *domain.Topic) error
	DeleteTopic(ctx context.Context, id uuid.UUID) (*domain.Topic, error)
	UpdateTopicOrder(ctx context.Context, ids []uuid.UUID) error

	CreateQuestion(ctx context.Context, q *domain.Question) error
	GetQuestion(ctx context.Context, id string) (*domain.Question, error)
	UpdateQuestion(ctx context.Context, q *domain.Question) error
	DeleteQuestion(ctx context.Context, id string) (*domain.Question, error)

	UpsertQuestionRel(ctx context.Context, rel *domain.QuestionTemplateRelation) error
	DeleteQuestionRel(ctx context.Context, templateID uuid.UUID, questionID string) error
	MoveQuestionRels(ctx context.Context, templateID, topicID uuid.UUID, questionIDs []string) error
}
