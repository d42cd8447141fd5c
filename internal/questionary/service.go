// Package questionary реализует сервис анкет: создание по шаблону,
// чтение шагов, запись ответов и флагов заполненности топиков.
//
// Сервис не бросает сырые ошибки хранилища: наружу выходит только
// rejection.Rejection с кодом причины. Неожиданные ошибки логируются
// и превращаются в INTERNAL_ERROR.
//
// Заполненность топика выставляет клиент (UpdateTopicCompleteness);
// UpdateAnswer её не пересчитывает.
package questionary

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/domain"
	"github.com/shaiso/Questionary/internal/engine"
	"github.com/shaiso/Questionary/internal/events"
	"github.com/shaiso/Questionary/internal/rejection"
	"github.com/shaiso/Questionary/internal/repo"
	"github.com/shaiso/Questionary/internal/telemetry"
)

const serviceName = "questionary"

// Config — зависимости сервиса.
type Config struct {
	Store  Store
	Sink   events.Sink
	Logger *slog.Logger

	// Clock — источник времени; по умолчанию time.Now.
	Clock func() time.Time
}

// Service — сервис анкет.
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

// Create создаёт пустую анкету по шаблону.
func (s *Service) Create(ctx context.Context, creatorID int64, templateID uuid.UUID) (result *domain.Questionary, err error) {
	defer s.track("create", time.Now(), &err)
	ctx = s.withTemplate(ctx, templateID)

	return events.Wrap(s.sink, events.TypeQuestionaryCreated, func(ctx context.Context) (*domain.Questionary, error) {
		q := &domain.Questionary{
			ID:         uuid.New(),
			TemplateID: templateID,
			CreatorID:  creatorID,
			CreatedAt:  s.now().UTC(),
		}
		if err := s.store.Create(ctx, q); err != nil {
			return nil, s.fail(ctx, "create questionary", err, "creator_id", creatorID)
		}
		return q, nil
	})(ctx)
}

// Get возвращает анкету по ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (result *domain.Questionary, err error) {
	defer s.track("get", time.Now(), &err)
	ctx = s.withQuestionary(ctx, id)

	q, err := s.store.GetQuestionary(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get questionary", err)
	}
	return q, nil
}

// GetQuestionarySteps возвращает шаги анкеты с ответами и видимостью полей.
func (s *Service) GetQuestionarySteps(ctx context.Context, id uuid.UUID) (result []domain.QuestionaryStep, err error) {
	defer s.track("get_steps", time.Now(), &err)
	ctx = s.withQuestionary(ctx, id)

	steps, err := s.store.GetQuestionarySteps(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get questionary steps", err)
	}

	s.resolveVisibility(ctx, steps)
	return steps, nil
}

// GetBlankQuestionarySteps возвращает шаги шаблона без ответов (предпросмотр).
func (s *Service) GetBlankQuestionarySteps(ctx context.Context, templateID uuid.UUID) (result []domain.QuestionaryStep, err error) {
	defer s.track("get_blank_steps", time.Now(), &err)
	ctx = s.withTemplate(ctx, templateID)

	steps, err := s.store.GetBlankQuestionarySteps(ctx, templateID)
	if err != nil {
		return nil, s.fail(ctx, "get blank questionary steps", err)
	}

	s.resolveVisibility(ctx, steps)
	return steps, nil
}

// GetParentQuestionary возвращает анкету-источник или nil, если её нет.
func (s *Service) GetParentQuestionary(ctx context.Context, childID uuid.UUID) (result *domain.Questionary, err error) {
	defer s.track("get_parent", time.Now(), &err)
	ctx = s.withQuestionary(ctx, childID)

	parent, err := s.store.GetParentQuestionary(ctx, childID)
	if err != nil {
		return nil, s.fail(ctx, "get parent questionary", err)
	}
	return parent, nil
}

// UpdateAnswer записывает ответ на вопрос (last-write-wins).
//
// Анкета проверяется до записи: для несуществующей анкеты
// хранилище не вызывается.
func (s *Service) UpdateAnswer(ctx context.Context, questionaryID uuid.UUID, questionID, value string) (result *domain.Answer, err error) {
	defer s.track("update_answer", time.Now(), &err)
	ctx = s.withQuestionary(ctx, questionaryID)

	return events.Wrap(s.sink, events.TypeAnswerUpdated, func(ctx context.Context) (*domain.Answer, error) {
		if questionID == "" {
			return nil, rejection.New(rejection.ReasonInvalidArgument, "question id is required")
		}

		if _, err := s.store.GetQuestionary(ctx, questionaryID); err != nil {
			return nil, s.fail(ctx, "update answer", err, "question_id", questionID)
		}

		answer := &domain.Answer{
			QuestionaryID: questionaryID,
			QuestionID:    questionID,
			Value:         value,
			UpdatedAt:     s.now().UTC(),
		}
		if err := s.store.UpdateAnswer(ctx, answer); err != nil {
			return nil, s.fail(ctx, "update answer", err, "question_id", questionID)
		}
		return answer, nil
	})(ctx)
}

// UpdateTopicCompleteness выставляет флаг заполненности топика.
// Ответы не проверяются: флаг задаёт вызывающий.
func (s *Service) UpdateTopicCompleteness(ctx context.Context, questionaryID, topicID uuid.UUID, isComplete bool) (result *domain.TopicCompleteness, err error) {
	defer s.track("update_topic_completeness", time.Now(), &err)
	ctx = s.withQuestionary(ctx, questionaryID)

	return events.Wrap(s.sink, events.TypeTopicCompletenessUpdated, func(ctx context.Context) (*domain.TopicCompleteness, error) {
		tc := &domain.TopicCompleteness{
			QuestionaryID: questionaryID,
			TopicID:       topicID,
			IsComplete:    isComplete,
		}
		if err := s.store.UpdateTopicCompleteness(ctx, tc); err != nil {
			return nil, s.fail(ctx, "update topic completeness", err, "topic_id", topicID)
		}
		return tc, nil
	})(ctx)
}

// Delete удаляет анкету и её ответы.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (result *domain.Questionary, err error) {
	defer s.track("delete", time.Now(), &err)
	ctx = s.withQuestionary(ctx, id)

	return events.Wrap(s.sink, events.TypeQuestionaryDeleted, func(ctx context.Context) (*domain.Questionary, error) {
		q, err := s.store.Delete(ctx, id)
		if err != nil {
			return nil, s.fail(ctx, "delete questionary", err)
		}
		return q, nil
	})(ctx)
}

// Clone создаёт копию анкеты с ответами; источник становится родителем.
func (s *Service) Clone(ctx context.Context, sourceID uuid.UUID, creatorID int64) (result *domain.Questionary, err error) {
	defer s.track("clone", time.Now(), &err)
	ctx = s.withQuestionary(ctx, sourceID)

	return events.Wrap(s.sink, events.TypeQuestionaryCloned, func(ctx context.Context) (*domain.Questionary, error) {
		parent := sourceID
		clone := &domain.Questionary{
			ID:        uuid.New(),
			CreatorID: creatorID,
			ParentID:  &parent,
			CreatedAt: s.now().UTC(),
		}
		if err := s.store.Clone(ctx, sourceID, clone); err != nil {
			return nil, s.fail(ctx, "clone questionary", err, "creator_id", creatorID)
		}
		return clone, nil
	})(ctx)
}

// resolveVisibility вычисляет видимость полей. Сломанный граф
// зависимостей не мешает чтению: поля остаются видимыми.
func (s *Service) resolveVisibility(ctx context.Context, steps []domain.QuestionaryStep) {
	if err := engine.ResolveVisibility(steps); err != nil {
		s.log(ctx).WarnContext(ctx, "could not resolve field visibility", "error", err)
	}
}

// fail переводит ошибку хранилища в отказ.
func (s *Service) fail(ctx context.Context, message string, err error, args ...any) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return rejection.Wrap(rejection.ReasonNotFound, message, err)
	case errors.Is(err, repo.ErrInvalidState):
		return rejection.Wrap(rejection.ReasonInvalidState, message, err)
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

func (s *Service) withQuestionary(ctx context.Context, id uuid.UUID) context.Context {
	return telemetry.WithLogger(ctx, telemetry.WithQuestionaryID(s.log(ctx), id.String()))
}

func (s *Service) withTemplate(ctx context.Context, id uuid.UUID) context.Context {
	return telemetry.WithLogger(ctx, telemetry.WithTemplateID(s.log(ctx), id.String()))
}
