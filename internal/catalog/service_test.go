package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/domain"
	"github.com/shaiso/Questionary/internal/events"
	"github.com/shaiso/Questionary/internal/fieldconfig"
	"github.com/shaiso/Questionary/internal/rejection"
	"github.com/shaiso/Questionary/internal/repo/sqlite"
	"github.com/shaiso/Questionary/internal/telemetry"
)

type recordingSink struct {
	events []*events.Event
}

func (s *recordingSink) Publish(_ context.Context, e *events.Event) error {
	s.events = append(s.events, e)
	return nil
}

func newTestService(t *testing.T) (*Service, *sqlite.Store, *recordingSink) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sink := &recordingSink{}
	svc := NewService(Config{
		Store:  store,
		Sink:   sink,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return svc, store, sink
}

// setup создаёт шаблон с одним топиком и двумя подключёнными вопросами.
func setup(t *testing.T, svc *Service) (*domain.Template, *domain.Question, *domain.Question) {
	t.Helper()
	ctx := context.Background()

	tpl, err := svc.CreateTemplate(ctx, domain.TemplateCategoryProposalQuestionary, "Proposal", "")
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	tpl, err = svc.CreateTopic(ctx, tpl.ID, 0)
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	topicID := tpl.Steps[0].Topic.ID

	boolQ, err := svc.CreateQuestion(ctx, domain.TemplateCategoryProposalQuestionary, fieldconfig.DataTypeBoolean)
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	textQ, err := svc.CreateQuestion(ctx, domain.TemplateCategoryProposalQuestionary, fieldconfig.DataTypeTextInput)
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	for _, q := range []*domain.Question{boolQ, textQ} {
		if _, err := svc.UpdateQuestionRel(ctx, QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: q.ID, TopicID: &topicID}); err != nil {
			t.Fatalf("attach question: %v", err)
		}
	}

	tpl, err = svc.GetTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	return tpl, boolQ, textQ
}

func dependOn(controller string) *domain.FieldDependency {
	return &domain.FieldDependency{
		DependencyID: controller,
		Condition:    domain.DependencyCondition{Operator: domain.ConditionEqual, Params: true},
	}
}

// --- Templates ---

func TestService_CreateTemplate(t *testing.T) {
	svc, _, sink := newTestService(t)

	tpl, err := svc.CreateTemplate(context.Background(), domain.TemplateCategorySampleDeclaration, "  Samples ", "desc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.Name != "Samples" || tpl.CategoryID != domain.TemplateCategorySampleDeclaration {
		t.Errorf("unexpected template: %+v", tpl)
	}
	if len(sink.events) != 1 || sink.events[0].Type != events.TypeTemplateCreated {
		t.Errorf("expected TEMPLATE_CREATED event, got %+v", sink.events)
	}

	if _, err := svc.CreateTemplate(context.Background(), domain.TemplateCategorySampleDeclaration, " ", ""); !errors.Is(err, rejection.ErrInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT for empty name, got %v", err)
	}
}

func TestService_UpdateTemplateMetadata(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tpl, err := svc.CreateTemplate(ctx, domain.TemplateCategoryProposalQuestionary, "Old", "")
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	name, archived := "New", true
	updated, err := svc.UpdateTemplateMetadata(ctx, tpl.ID, TemplateUpdate{Name: &name, IsArchived: &archived})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "New" || !updated.IsArchived {
		t.Errorf("unexpected template: %+v", updated)
	}

	if _, err := svc.UpdateTemplateMetadata(ctx, uuid.New(), TemplateUpdate{Name: &name}); !errors.Is(err, rejection.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestService_DeleteTemplate_InUse(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	tpl, _, _ := setup(t, svc)

	q := &domain.Questionary{ID: uuid.New(), TemplateID: tpl.ID, CreatorID: 1, CreatedAt: time.Now()}
	if err := store.Create(ctx, q); err != nil {
		t.Fatalf("create questionary: %v", err)
	}

	if _, err := svc.DeleteTemplate(ctx, tpl.ID); !errors.Is(err, rejection.ErrInvalidState) {
		t.Errorf("expected INVALID_STATE, got %v", err)
	}
}

// --- Topics ---

func TestService_CreateTopic_InsertsAtPosition(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tpl, err := svc.CreateTemplate(ctx, domain.TemplateCategoryProposalQuestionary, "T", "")
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	for i := 0; i < 2; i++ {
		if tpl, err = svc.CreateTopic(ctx, tpl.ID, i); err != nil {
			t.Fatalf("create topic: %v", err)
		}
	}
	first, second := tpl.Steps[0].Topic.ID, tpl.Steps[1].Topic.ID

	tpl, err = svc.CreateTopic(ctx, tpl.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tpl.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(tpl.Steps))
	}
	if tpl.Steps[0].Topic.ID != first || tpl.Steps[2].Topic.ID != second {
		t.Error("new topic should be inserted between existing ones")
	}
	if tpl.Steps[1].Topic.Title != "New topic" || !tpl.Steps[1].Topic.IsEnabled {
		t.Errorf("unexpected new topic: %+v", tpl.Steps[1].Topic)
	}

	if _, err := svc.CreateTopic(ctx, uuid.New(), 0); !errors.Is(err, rejection.ErrNotFound) {
		t.Errorf("expected NOT_FOUND for unknown template, got %v", err)
	}
}

func TestService_UpdateTopicOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tpl, _ := svc.CreateTemplate(ctx, domain.TemplateCategoryProposalQuestionary, "T", "")
	tpl, _ = svc.CreateTopic(ctx, tpl.ID, 0)
	tpl, _ = svc.CreateTopic(ctx, tpl.ID, 1)
	a, b := tpl.Steps[0].Topic.ID, tpl.Steps[1].Topic.ID

	order, err := svc.UpdateTopicOrder(ctx, []uuid.UUID{b, a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order.TopicIDs) != 2 || order.TopicIDs[0] != b {
		t.Errorf("unexpected order: %+v", order)
	}

	steps, err := svc.GetTemplateSteps(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if steps[0].Topic.ID != b {
		t.Error("topic order should be persisted")
	}

	if _, err := svc.UpdateTopicOrder(ctx, nil); !errors.Is(err, rejection.ErrInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestService_UpdateTopic(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	tpl, _, _ := setup(t, svc)

	title, enabled := "Samples", false
	topic, err := svc.UpdateTopic(ctx, tpl.Steps[0].Topic.ID, TopicUpdate{Title: &title, IsEnabled: &enabled})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topic.Title != "Samples" || topic.IsEnabled {
		t.Errorf("unexpected topic: %+v", topic)
	}
}

// --- Questions ---

func TestService_CreateQuestion(t *testing.T) {
	svc, _, _ := newTestService(t)
	now := time.UnixMilli(1700000000000)
	svc.now = func() time.Time { return now }

	q, err := svc.CreateQuestion(context.Background(), domain.TemplateCategoryProposalQuestionary, fieldconfig.DataTypeFileUpload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !regexp.MustCompile(`^file_upload_1700000000000_[0-9a-f]{8}$`).MatchString(q.ID) {
		t.Errorf("unexpected question id %q", q.ID)
	}
	if q.NaturalKey != q.ID || q.Question != "New question" {
		t.Errorf("unexpected defaults: %+v", q)
	}
	if _, ok := q.Config.(*fieldconfig.FileUploadConfig); !ok {
		t.Errorf("expected blank file upload config, got %T", q.Config)
	}

	if _, err := svc.CreateQuestion(context.Background(), domain.TemplateCategoryProposalQuestionary, "RANGE"); !errors.Is(err, rejection.ErrInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT for unknown type, got %v", err)
	}
}

func TestService_UpdateQuestion(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, boolQ, textQ := setup(t, svc)

	key := "has_samples"
	q, err := svc.UpdateQuestion(ctx, boolQ.ID, QuestionUpdate{
		NaturalKey: &key,
		Config:     json.RawMessage(`{"required": true}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.NaturalKey != "has_samples" {
		t.Errorf("natural key not updated: %+v", q)
	}
	if cfg, ok := q.Config.(*fieldconfig.BooleanConfig); !ok || !cfg.Required {
		t.Errorf("config not decoded by data type: %#v", q.Config)
	}

	if _, err := svc.UpdateQuestion(ctx, textQ.ID, QuestionUpdate{NaturalKey: &key}); !errors.Is(err, rejection.ErrInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT for duplicate natural key, got %v", err)
	}
	if _, err := svc.UpdateQuestion(ctx, textQ.ID, QuestionUpdate{Config: json.RawMessage(`{`)}); !errors.Is(err, rejection.ErrInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT for broken config, got %v", err)
	}
}

// --- Relations ---

func TestService_UpdateQuestionRel_AttachDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	tpl, boolQ, textQ := setup(t, svc)

	fields := tpl.Steps[0].Fields
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Question.ID != boolQ.ID || fields[1].Question.ID != textQ.ID {
		t.Error("attached questions should be appended to the topic")
	}
	if _, ok := fields[1].Config.(*fieldconfig.TextInputConfig); !ok {
		t.Errorf("relation should start from the question config, got %T", fields[1].Config)
	}
}

func TestService_UpdateQuestionRel_RequiresTopicToAttach(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	tpl, _, _ := setup(t, svc)

	q, err := svc.CreateQuestion(ctx, domain.TemplateCategoryProposalQuestionary, fieldconfig.DataTypeDate)
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	if _, err := svc.UpdateQuestionRel(ctx, QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: q.ID}); !errors.Is(err, rejection.ErrInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}

	foreign := uuid.New()
	if _, err := svc.UpdateQuestionRel(ctx, QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: q.ID, TopicID: &foreign}); !errors.Is(err, rejection.ErrInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT for foreign topic, got %v", err)
	}

	topicID := tpl.Steps[0].Topic.ID
	if _, err := svc.UpdateQuestionRel(ctx, QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: "missing", TopicID: &topicID}); !errors.Is(err, rejection.ErrNotFound) {
		t.Errorf("expected NOT_FOUND for unknown question, got %v", err)
	}
}

func TestService_UpdateQuestionRel_Dependency(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	tpl, boolQ, textQ := setup(t, svc)

	tpl, err := svc.UpdateQuestionRel(ctx, QuestionRelUpdate{
		TemplateID: tpl.ID,
		QuestionID: textQ.ID,
		Dependency: dependOn(boolQ.ID),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rel := domain.FindRelation(tpl.Steps, textQ.ID)
	if rel.Dependency == nil || rel.Dependency.DependencyID != boolQ.ID {
		t.Fatalf("dependency not stored: %+v", rel.Dependency)
	}
	if rel.Dependency.DependencyNaturalKey != boolQ.NaturalKey {
		t.Errorf("natural key not resolved: %+v", rel.Dependency)
	}

	tests := []struct {
		name   string
		update QuestionRelUpdate
	}{
		{
			name:   "cycle",
			update: QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: boolQ.ID, Dependency: dependOn(textQ.ID)},
		},
		{
			name:   "self",
			update: QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: boolQ.ID, Dependency: dependOn(boolQ.ID)},
		},
		{
			name:   "outside template",
			update: QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: boolQ.ID, Dependency: dependOn("not_attached")},
		},
		{
			name: "unknown operator",
			update: QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: boolQ.ID, Dependency: &domain.FieldDependency{
				DependencyID: textQ.ID,
				Condition:    domain.DependencyCondition{Operator: "LIKE"},
			}},
		},
		{
			name: "broken expression",
			update: QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: textQ.ID, Dependency: &domain.FieldDependency{
				DependencyID: boolQ.ID,
				Condition:    domain.DependencyCondition{Operator: domain.ConditionExpression, Params: "{{ if }"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateQuestionRel(ctx, tt.update)
			if !errors.Is(err, rejection.ErrInvalidDependency) {
				t.Errorf("expected INVALID_DEPENDENCY, got %v", err)
			}
		})
	}

	tpl, err = svc.UpdateQuestionRel(ctx, QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: textQ.ID, ClearDependency: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain.FindRelation(tpl.Steps, textQ.ID).Dependency != nil {
		t.Error("dependency should be cleared")
	}
}

func TestService_DeleteQuestionRel(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	tpl, boolQ, textQ := setup(t, svc)

	if _, err := svc.UpdateQuestionRel(ctx, QuestionRelUpdate{TemplateID: tpl.ID, QuestionID: textQ.ID, Dependency: dependOn(boolQ.ID)}); err != nil {
		t.Fatalf("add dependency: %v", err)
	}

	if _, err := svc.DeleteQuestionRel(ctx, tpl.ID, boolQ.ID); !errors.Is(err, rejection.ErrInvalidState) {
		t.Errorf("expected INVALID_STATE, got %v", err)
	}
	if _, err := svc.DeleteQuestion(ctx, boolQ.ID); !errors.Is(err, rejection.ErrInvalidState) {
		t.Errorf("expected INVALID_STATE for question delete, got %v", err)
	}

	tpl, err := svc.DeleteQuestionRel(ctx, tpl.ID, textQ.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain.FindRelation(tpl.Steps, textQ.ID) != nil {
		t.Error("relation should be removed")
	}

	if _, err := svc.DeleteQuestionRel(ctx, tpl.ID, textQ.ID); !errors.Is(err, rejection.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestService_UpdateFieldTopicRel(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()
	tpl, boolQ, textQ := setup(t, svc)

	tpl, err := svc.CreateTopic(ctx, tpl.ID, 1)
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	target := tpl.Steps[1].Topic.ID

	order, err := svc.UpdateFieldTopicRel(ctx, tpl.ID, target, []string{textQ.ID, boolQ.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.TopicID != target || len(order.QuestionIDs) != 2 {
		t.Errorf("unexpected result: %+v", order)
	}
	if last := sink.events[len(sink.events)-1]; last.Type != events.TypeFieldTopicRelUpdated {
		t.Errorf("expected FIELD_TOPIC_REL_UPDATED, got %s", last.Type)
	}

	steps, err := svc.GetTemplateSteps(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps[0].Fields) != 0 || len(steps[1].Fields) != 2 {
		t.Fatalf("fields should move to the target topic: %+v", steps)
	}
	if steps[1].Fields[0].Question.ID != textQ.ID || steps[1].Fields[0].SortOrder != 1 || steps[1].Fields[1].SortOrder != 2 {
		t.Errorf("fields should be numbered 1..n: %+v", steps[1].Fields)
	}

	if _, err := svc.UpdateFieldTopicRel(ctx, tpl.ID, target, []string{"missing"}); !errors.Is(err, rejection.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if _, err := svc.UpdateFieldTopicRel(ctx, tpl.ID, uuid.New(), nil); !errors.Is(err, rejection.ErrInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
}

// brokenStepsStore ломает чтение шагов шаблона.
type brokenStepsStore struct {
	*sqlite.Store
}

func (brokenStepsStore) GetTemplateSteps(context.Context, uuid.UUID) ([]domain.TemplateStep, error) {
	return nil, errors.New("connection reset")
}

func TestService_FailureLogsTemplateID(t *testing.T) {
	_, store, _ := newTestService(t)

	var buf bytes.Buffer
	svc := NewService(Config{
		Store:  brokenStepsStore{Store: store},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	id := uuid.New()
	ctx := telemetry.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)).With("actor_id", 7))

	_, err := svc.GetTemplateSteps(ctx, id)
	if rejection.ReasonOf(err) != rejection.ReasonInternalError {
		t.Fatalf("expected INTERNAL_ERROR, got %v", err)
	}

	out := buf.String()
	for _, want := range []string{"could not get template steps", "actor_id=7", "template_id=" + id.String(), "connection reset"} {
		if !strings.Contains(out, want) {
			t.Errorf("log should contain %q, got: %s", want, out)
		}
	}
}
