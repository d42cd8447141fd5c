// Package catalog реализует администрирование шаблонов: шаблоны, топики,
// вопросы и их подключение к шаблонам с условными зависимостями.
//
// Зависимости между полями проверяются движком (internal/engine) до
// записи: ссылка на вопрос вне шаблона, самозависимость, цикл или
// неразбираемое выражение дают отказ INVALID_DEPENDENCY.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/domain"
	"github.com/shaiso/Questionary/internal/engine"
	"github.com/shaiso/Questionary/internal/events"
	"github.com/shaiso/Questionary/internal/fieldconfig"
	"github.com/shaiso/Questionary/internal/rejection"
	"github.com/shaiso/Questionary/internal/repo"
	"github.com/shaiso/Questionary/internal/telemetry"
)

const (
	serviceName = "catalog"

	defaultTopicTitle    = "New topic"
	defaultQuestionTitle = "New question"
)

// Config — зависимости сервиса.
type Config struct {
	Store  Store
	Sink   events.Sink
	Logger *slog.Logger
	Clock  func() time.Time
}

// Service — сервис каталога шаблонов.
type Service struct {
	store  Store
	sink   events.Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewService создаёт новый Service.
func NewService(cfg Config) *Service {
	s := &Service{
		store:  cfg.Store,
		sink:   cfg.Sink,
		logger: cfg.Logger,
		now:    cfg.Clock,
	}
	if s.sink == nil {
		s.sink = events.NopSink{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// --- Templates ---

// TemplateUpdate — изменяемые метаданные шаблона. nil — без изменений.
type TemplateUpdate struct {
	Name        *string
	Description *string
	IsArchived  *bool
}

// CreateTemplate создаёт пустой шаблон.
func (s *Service) CreateTemplate(ctx context.Context, category domain.TemplateCategory, name, description string) (result *domain.Template, err error) {
	defer s.track("create_template", time.Now(), &err)

	return events.Wrap(s.sink, events.TypeTemplateCreated, func(ctx context.Context) (*domain.Template, error) {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, rejection.New(rejection.ReasonInvalidArgument, "template name is required")
		}

		t := &domain.Template{
			ID:          uuid.New(),
			CategoryID:  category,
			Name:        name,
			Description: description,
			CreatedAt:   s.now().UTC(),
			Steps:       []domain.TemplateStep{},
		}
		if err := s.store.CreateTemplate(ctx, t); err != nil {
			return nil, s.fail(ctx, "create template", err, "name", name)
		}
		return t, nil
	})(ctx)
}

// GetTemplate возвращает шаблон вместе с шагами.
func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (result *domain.Template, err error) {
	defer s.track("get_template", time.Now(), &err)
	ctx = s.withTemplate(ctx, id)

	t, err := s.loadTemplate(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get template", err)
	}
	return t, nil
}

// ListTemplates возвращает шаблоны по фильтру (без шагов).
func (s *Service) ListTemplates(ctx context.Context, filter domain.TemplateFilter) (result []domain.Template, err error) {
	defer s.track("list_templates", time.Now(), &err)

	templates, err := s.store.ListTemplates(ctx, filter)
	if err != nil {
		return nil, s.fail(ctx, "list templates", err)
	}
	return templates, nil
}

// UpdateTemplateMetadata обновляет название, описание и флаг архива.
func (s *Service) UpdateTemplateMetadata(ctx context.Context, id uuid.UUID, update TemplateUpdate) (result *domain.Template, err error) {
	defer s.track("update_template", time.Now(), &err)
	ctx = s.withTemplate(ctx, id)

	return events.Wrap(s.sink, events.TypeTemplateUpdated, func(ctx context.Context) (*domain.Template, error) {
		t, err := s.store.GetTemplate(ctx, id)
		if err != nil {
			return nil, s.fail(ctx, "update template", err)
		}

		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return nil, rejection.New(rejection.ReasonInvalidArgument, "template name must not be empty")
			}
			t.Name = name
		}
		if update.Description != nil {
			t.Description = *update.Description
		}
		if update.IsArchived != nil {
			t.IsArchived = *update.IsArchived
		}

		if err := s.store.UpdateTemplate(ctx, t); err != nil {
			return nil, s.fail(ctx, "update template", err)
		}
		return t, nil
	})(ctx)
}

// DeleteTemplate удаляет шаблон. INVALID_STATE, если по нему созданы анкеты.
func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) (result *domain.Template, err error) {
	defer s.track("delete_template", time.Now(), &err)
	ctx = s.withTemplate(ctx, id)

	return events.Wrap(s.sink, events.TypeTemplateDeleted, func(ctx context.Context) (*domain.Template, error) {
		t, err := s.store.DeleteTemplate(ctx, id)
		if err != nil {
			return nil, s.fail(ctx, "delete template", err)
		}
		return t, nil
	})(ctx)
}

// GetTemplateSteps возвращает топики шаблона с подключёнными вопросами.
func (s *Service) GetTemplateSteps(ctx context.Context, id uuid.UUID) (result []domain.TemplateStep, err error) {
	defer s.track("get_template_steps", time.Now(), &err)
	ctx = s.withTemplate(ctx, id)

	steps, err := s.store.GetTemplateSteps(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get template steps", err)
	}
	return steps, nil
}

// --- Topics ---

// TopicUpdate — изменяемые поля топика. nil — без изменений.
type TopicUpdate struct {
	Title     *string
	SortOrder *int
	IsEnabled *bool
}

// CreateTopic добавляет топик "New topic" на позицию sortOrder
// и возвращает шаблон с шагами.
func (s *Service) CreateTopic(ctx context.Context, templateID uuid.UUID, sortOrder int) (result *domain.Template, err error) {
	defer s.track("create_topic", time.Now(), &err)
	ctx = s.withTemplate(ctx, templateID)

	return events.Wrap(s.sink, events.TypeTopicCreated, func(ctx context.Context) (*domain.Template, error) {
		if sortOrder < 0 {
			return nil, rejection.New(rejection.ReasonInvalidArgument, "sort order must not be negative")
		}

		topic := &domain.Topic{
			ID:         uuid.New(),
			TemplateID: templateID,
			Title:      defaultTopicTitle,
			SortOrder:  sortOrder,
			IsEnabled:  true,
		}
		if err := s.store.CreateTopic(ctx, topic); err != nil {
			return nil, s.fail(ctx, "create topic", err)
		}

		t, err := s.loadTemplate(ctx, templateID)
		if err != nil {
			return nil, s.fail(ctx, "create topic", err)
		}
		return t, nil
	})(ctx)
}

// UpdateTopic обновляет заголовок, позицию и флаг топика.
func (s *Service) UpdateTopic(ctx context.Context, id uuid.UUID, update TopicUpdate) (result *domain.Topic, err error) {
	defer s.track("update_topic", time.Now(), &err)

	return events.Wrap(s.sink, events.TypeTopicUpdated, func(ctx context.Context) (*domain.Topic, error) {
		topic, err := s.store.GetTopic(ctx, id)
		if err != nil {
			return nil, s.fail(ctx, "update topic", err, "topic_id", id)
		}

		if update.Title != nil {
			topic.Title = *update.Title
		}
		if update.SortOrder != nil {
			topic.SortOrder = *update.SortOrder
		}
		if update.IsEnabled != nil {
			topic.IsEnabled = *update.IsEnabled
		}

		if err := s.store.UpdateTopic(ctx, topic); err != nil {
			return nil, s.fail(ctx, "update topic", err, "topic_id", id)
		}
		return topic, nil
	})(ctx)
}

// DeleteTopic удаляет топик вместе с его полями.
// INVALID_STATE, если от этих полей зависят поля других топиков.
func (s *Service) DeleteTopic(ctx context.Context, id uuid.UUID) (result *domain.Topic, err error) {
	defer s.track("delete_topic", time.Now(), &err)

	return events.Wrap(s.sink, events.TypeTopicDeleted, func(ctx context.Context) (*domain.Topic, error) {
		topic, err := s.store.DeleteTopic(ctx, id)
		if err != nil {
			return nil, s.fail(ctx, "delete topic", err, "topic_id", id)
		}
		return topic, nil
	})(ctx)
}

// UpdateTopicOrder выставляет порядок топиков по позиции в ids.
func (s *Service) UpdateTopicOrder(ctx context.Context, ids []uuid.UUID) (result *domain.TopicOrder, err error) {
	defer s.track("update_topic_order", time.Now(), &err)

	return events.Wrap(s.sink, events.TypeTopicOrderUpdated, func(ctx context.Context) (*domain.TopicOrder, error) {
		if len(ids) == 0 {
			return nil, rejection.New(rejection.ReasonInvalidArgument, "topic ids are required")
		}
		if err := s.store.UpdateTopicOrder(ctx, ids); err != nil {
			return nil, s.fail(ctx, "update topic order", err, "topics", len(ids))
		}
		return &domain.TopicOrder{TopicIDs: ids}, nil
	})(ctx)
}

// --- Questions ---

// QuestionUpdate — изменяемые поля вопроса. nil — без изменений.
type QuestionUpdate struct {
	NaturalKey *string
	Question   *string

	// Config — конфигурация по умолчанию в JSON; схема определяется типом данных.
	Config json.RawMessage
}

// NewQuestionID формирует ID вопроса: <тип в нижнем регистре>_<unix ms>_<суффикс>.
func NewQuestionID(dataType fieldconfig.DataType, now time.Time) string {
	return fmt.Sprintf("%s_%d_%s",
		strings.ToLower(dataType.String()), now.UnixMilli(), uuid.NewString()[:8])
}

// CreateQuestion создаёт вопрос с конфигурацией по умолчанию для dataType.
// Natural key совпадает с ID, пока его не изменят.
func (s *Service) CreateQuestion(ctx context.Context, category domain.TemplateCategory, dataType fieldconfig.DataType) (result *domain.Question, err error) {
	defer s.track("create_question", time.Now(), &err)

	return events.Wrap(s.sink, events.TypeQuestionCreated, func(ctx context.Context) (*domain.Question, error) {
		if !dataType.IsKnown() {
			return nil, rejection.New(rejection.ReasonInvalidArgument,
				fmt.Sprintf("unknown data type %q", dataType))
		}

		now := s.now().UTC()
		id := NewQuestionID(dataType, now)
		q := &domain.Question{
			ID:         id,
			CategoryID: category,
			NaturalKey: id,
			DataType:   dataType,
			Question:   defaultQuestionTitle,
			Config:     fieldconfig.Blank(dataType),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.store.CreateQuestion(ctx, q); err != nil {
			return nil, s.fail(ctx, "create question", err, "data_type", dataType)
		}
		return q, nil
	})(ctx)
}

// GetQuestion возвращает вопрос по ID.
func (s *Service) GetQuestion(ctx context.Context, id string) (result *domain.Question, err error) {
	defer s.track("get_question", time.Now(), &err)

	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get question", err, "question_id", id)
	}
	return q, nil
}

// UpdateQuestion обновляет natural key, текст и конфигурацию по умолчанию.
func (s *Service) UpdateQuestion(ctx context.Context, id string, update QuestionUpdate) (result *domain.Question, err error) {
	defer s.track("update_question", time.Now(), &err)

	return events.Wrap(s.sink, events.TypeQuestionUpdated, func(ctx context.Context) (*domain.Question, error) {
		q, err := s.store.GetQuestion(ctx, id)
		if err != nil {
			return nil, s.fail(ctx, "update question", err, "question_id", id)
		}

		if update.NaturalKey != nil {
			key := strings.TrimSpace(*update.NaturalKey)
			if key == "" {
				return nil, rejection.New(rejection.ReasonInvalidArgument, "natural key must not be empty")
			}
			q.NaturalKey = key
		}
		if update.Question != nil {
			q.Question = *update.Question
		}
		if len(update.Config) > 0 {
			cfg, err := fieldconfig.DecodeJSON(q.DataType, update.Config)
			if err != nil {
				return nil, rejection.Wrap(rejection.ReasonInvalidArgument, "invalid question config", err)
			}
			q.Config = cfg
		}
		q.UpdatedAt = s.now().UTC()

		if err := s.store.UpdateQuestion(ctx, q); err != nil {
			return nil, s.fail(ctx, "update question", err, "question_id", id)
		}
		return q, nil
	})(ctx)
}

// DeleteQuestion удаляет вопрос из каталога и всех шаблонов.
// INVALID_STATE, если от вопроса зависят поля какого-либо шаблона.
func (s *Service) DeleteQuestion(ctx context.Context, id string) (result *domain.Question, err error) {
	defer s.track("delete_question", time.Now(), &err)

	return events.Wrap(s.sink, events.TypeQuestionDeleted, func(ctx context.Context) (*domain.Question, error) {
		q, err := s.store.DeleteQuestion(ctx, id)
		if err != nil {
			return nil, s.fail(ctx, "delete question", err, "question_id", id)
		}
		return q, nil
	})(ctx)
}

// --- Question relations ---

// QuestionRelUpdate — изменения подключения вопроса к шаблону.
// nil/пустые поля остаются без изменений.
type QuestionRelUpdate struct {
	TemplateID uuid.UUID
	QuestionID string

	// TopicID обязателен, если вопрос ещё не подключён к шаблону.
	TopicID   *uuid.UUID
	SortOrder *int
	Config    json.RawMessage

	Dependency      *domain.FieldDependency
	ClearDependency bool
}

// UpdateQuestionRel подключает вопрос к шаблону или изменяет подключение
// и возвращает шаблон с шагами.
//
// Новый вопрос получает конфигурацию по умолчанию и встаёт в конец топика.
func (s *Service) UpdateQuestionRel(ctx context.Context, update QuestionRelUpdate) (result *domain.Template, err error) {
	defer s.track("update_question_rel", time.Now(), &err)
	ctx = s.withTemplate(ctx, update.TemplateID)

	return events.Wrap(s.sink, events.TypeQuestionRelUpdated, func(ctx context.Context) (*domain.Template, error) {
		logArgs := []any{"question_id", update.QuestionID}

		steps, err := s.store.GetTemplateSteps(ctx, update.TemplateID)
		if err != nil {
			return nil, s.fail(ctx, "update question rel", err, logArgs...)
		}

		rel, err := s.relationFor(ctx, steps, update)
		if err != nil {
			return nil, s.fail(ctx, "update question rel", err, logArgs...)
		}

		if err := s.applyRelUpdate(steps, rel, update); err != nil {
			return nil, err
		}

		if err := engine.ValidateDependencies(replaceRelation(steps, rel)); err != nil {
			return nil, rejection.Wrap(rejection.ReasonInvalidDependency, "invalid field dependency", err)
		}

		if err := s.store.UpsertQuestionRel(ctx, rel); err != nil {
			return nil, s.fail(ctx, "update question rel", err, logArgs...)
		}

		t, err := s.loadTemplate(ctx, update.TemplateID)
		if err != nil {
			return nil, s.fail(ctx, "update question rel", err, logArgs...)
		}
		return t, nil
	})(ctx)
}

// relationFor возвращает копию существующего подключения или новое.
func (s *Service) relationFor(ctx context.Context, steps []domain.TemplateStep, update QuestionRelUpdate) (*domain.QuestionTemplateRelation, error) {
	if existing := domain.FindRelation(steps, update.QuestionID); existing != nil {
		rel := *existing
		return &rel, nil
	}

	if update.TopicID == nil {
		return nil, rejection.New(rejection.ReasonInvalidArgument,
			"topic id is required to attach a question")
	}

	q, err := s.store.GetQuestion(ctx, update.QuestionID)
	if err != nil {
		return nil, err
	}

	sortOrder := 0
	for _, step := range steps {
		if step.Topic.ID == *update.TopicID {
			sortOrder = len(step.Fields)
		}
	}

	return &domain.QuestionTemplateRelation{
		Question:   *q,
		TemplateID: update.TemplateID,
		TopicID:    *update.TopicID,
		SortOrder:  sortOrder,
		Config:     q.Config,
	}, nil
}

func (s *Service) applyRelUpdate(steps []domain.TemplateStep, rel *domain.QuestionTemplateRelation, update QuestionRelUpdate) error {
	if update.TopicID != nil {
		if domain.FindTopic(steps, *update.TopicID) == nil {
			return rejection.New(rejection.ReasonInvalidArgument, "topic does not belong to template")
		}
		rel.TopicID = *update.TopicID
	}

	if update.SortOrder != nil {
		rel.SortOrder = *update.SortOrder
	}

	if len(update.Config) > 0 {
		cfg, err := fieldconfig.DecodeJSON(rel.Question.DataType, update.Config)
		if err != nil {
			return rejection.Wrap(rejection.ReasonInvalidArgument, "invalid field config", err)
		}
		rel.Config = cfg
	}

	switch {
	case update.ClearDependency:
		rel.Dependency = nil
	case update.Dependency != nil:
		dep := *update.Dependency
		if dep.QuestionID == "" {
			dep.QuestionID = rel.Question.ID
		}
		if controller := domain.FindRelation(steps, dep.DependencyID); controller != nil {
			dep.DependencyNaturalKey = controller.Question.NaturalKey
		}
		rel.Dependency = &dep
	}
	return nil
}

// replaceRelation возвращает relations шаблона, где rel заменяет
// одноимённое подключение или добавлен в конец.
func replaceRelation(steps []domain.TemplateStep, rel *domain.QuestionTemplateRelation) []domain.QuestionTemplateRelation {
	rels := domain.Relations(steps)
	for i := range rels {
		if rels[i].Question.ID == rel.Question.ID {
			rels[i] = *rel
			return rels
		}
	}
	return append(rels, *rel)
}

// DeleteQuestionRel отключает вопрос от шаблона и возвращает шаблон с шагами.
// INVALID_STATE, если от вопроса зависят другие поля шаблона.
func (s *Service) DeleteQuestionRel(ctx context.Context, templateID uuid.UUID, questionID string) (result *domain.Template, err error) {
	defer s.track("delete_question_rel", time.Now(), &err)
	ctx = s.withTemplate(ctx, templateID)

	return events.Wrap(s.sink, events.TypeQuestionRelDeleted, func(ctx context.Context) (*domain.Template, error) {
		logArgs := []any{"question_id", questionID}

		steps, err := s.store.GetTemplateSteps(ctx, templateID)
		if err != nil {
			return nil, s.fail(ctx, "delete question rel", err, logArgs...)
		}
		if domain.FindRelation(steps, questionID) == nil {
			return nil, rejection.New(rejection.ReasonNotFound, "question is not attached to template")
		}

		if g, err := engine.BuildGraph(domain.Relations(steps)); err == nil {
			if dependents := g.DependentsOf(questionID); len(dependents) > 0 {
				return nil, rejection.New(rejection.ReasonInvalidState,
					fmt.Sprintf("fields depend on %s: %s", questionID, strings.Join(dependents, ", ")))
			}
		}

		if err := s.store.DeleteQuestionRel(ctx, templateID, questionID); err != nil {
			return nil, s.fail(ctx, "delete question rel", err, logArgs...)
		}

		t, err := s.loadTemplate(ctx, templateID)
		if err != nil {
			return nil, s.fail(ctx, "delete question rel", err, logArgs...)
		}
		return t, nil
	})(ctx)
}

// UpdateFieldTopicRel переносит вопросы в топик и нумерует их 1..n
// в порядке questionIDs.
func (s *Service) UpdateFieldTopicRel(ctx context.Context, templateID, topicID uuid.UUID, questionIDs []string) (result *domain.FieldTopicOrder, err error) {
	defer s.track("update_field_topic_rel", time.Now(), &err)
	ctx = s.withTemplate(ctx, templateID)

	return events.Wrap(s.sink, events.TypeFieldTopicRelUpdated, func(ctx context.Context) (*domain.FieldTopicOrder, error) {
		logArgs := []any{"topic_id", topicID}

		steps, err := s.store.GetTemplateSteps(ctx, templateID)
		if err != nil {
			return nil, s.fail(ctx, "update field topic rel", err, logArgs...)
		}
		if domain.FindTopic(steps, topicID) == nil {
			return nil, rejection.New(rejection.ReasonInvalidArgument, "topic does not belong to template")
		}
		for _, id := range questionIDs {
			if domain.FindRelation(steps, id) == nil {
				return nil, rejection.New(rejection.ReasonNotFound,
					fmt.Sprintf("question %s is not attached to template", id))
			}
		}

		if err := s.store.MoveQuestionRels(ctx, templateID, topicID, questionIDs); err != nil {
			return nil, s.fail(ctx, "update field topic rel", err, logArgs...)
		}
		return &domain.FieldTopicOrder{
			TemplateID:  templateID,
			TopicID:     topicID,
			QuestionIDs: questionIDs,
		}, nil
	})(ctx)
}

// --- helpers ---

func (s *Service) loadTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	steps, err := s.store.GetTemplateSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Steps = steps
	return t, nil
}

// fail переводит ошибку хранилища в отказ.
func (s *Service) fail(ctx context.Context, message string, err error, args ...any) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return rejection.Wrap(rejection.ReasonNotFound, message, err)
	case errors.Is(err, repo.ErrInvalidState):
		return rejection.Wrap(rejection.ReasonInvalidState, message, err)
	case errors.Is(err, repo.ErrAlreadyExists):
		return rejection.Wrap(rejection.ReasonInvalidArgument, message, err)
	case rejection.IsRejection(err):
		return err
	default:
		s.log(ctx).ErrorContext(ctx, "could not "+message, append(args, "error", err)...)
		return rejection.Wrap(rejection.ReasonInternalError, message, err)
	}
}

func (s *Service) track(operation string, start time.Time, err *error) {
	telemetry.ObserveOperation(serviceName, operation, string(rejection.ReasonOf(*err)), start)
}

// log возвращает логгер запроса, если он есть в контексте.
func (s *Service) log(ctx context.Context) *slog.Logger {
	return telemetry.FromContextOr(ctx, s.logger)
}

func (s *Service) withTemplate(ctx context.Context, id uuid.UUID) context.Context {
	return telemetry.WithLogger(ctx, telemetry.WithTemplateID(s.log(ctx), id.String()))
}
