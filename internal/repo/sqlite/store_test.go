package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/domain"
	"github.com/shaiso/Questionary/internal/events"
	"github.com/shaiso/Questionary/internal/fieldconfig"
	"github.com/shaiso/Questionary/internal/repo"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "questionary.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// fixture — шаблон с двумя топиками: в первом вопросы has_samples и
// sample_count (зависит от has_samples), во втором — comment.
type fixture struct {
	template   *domain.Template
	topicA     *domain.Topic
	topicB     *domain.Topic
	hasSamples *domain.Question
	count      *domain.Question
	comment    *domain.Question
}

func newQuestion(id string, dataType fieldconfig.DataType) *domain.Question {
	now := time.Now().UTC()
	return &domain.Question{
		ID:         id,
		CategoryID: domain.TemplateCategoryProposalQuestionary,
		NaturalKey: id,
		DataType:   dataType,
		Question:   "Question " + id,
		Config:     fieldconfig.Blank(dataType),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func seed(t *testing.T, s *Store) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		template: &domain.Template{
			ID:         uuid.New(),
			CategoryID: domain.TemplateCategoryProposalQuestionary,
			Name:       "Proposal",
			CreatedAt:  time.Now().UTC(),
		},
	}
	if err := s.CreateTemplate(ctx, f.template); err != nil {
		t.Fatalf("create template: %v", err)
	}

	f.topicA = &domain.Topic{ID: uuid.New(), TemplateID: f.template.ID, Title: "General", SortOrder: 0, IsEnabled: true}
	f.topicB = &domain.Topic{ID: uuid.New(), TemplateID: f.template.ID, Title: "Notes", SortOrder: 1, IsEnabled: true}
	for _, topic := range []*domain.Topic{f.topicA, f.topicB} {
		if err := s.CreateTopic(ctx, topic); err != nil {
			t.Fatalf("create topic: %v", err)
		}
	}

	f.hasSamples = newQuestion("has_samples", fieldconfig.DataTypeBoolean)
	f.count = newQuestion("sample_count", fieldconfig.DataTypeTextInput)
	f.comment = newQuestion("comment", fieldconfig.DataTypeTextInput)
	for _, q := range []*domain.Question{f.hasSamples, f.count, f.comment} {
		if err := s.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	rels := []*domain.QuestionTemplateRelation{
		{Question: *f.hasSamples, TemplateID: f.template.ID, TopicID: f.topicA.ID, SortOrder: 0, Config: f.hasSamples.Config},
		{
			Question: *f.count, TemplateID: f.template.ID, TopicID: f.topicA.ID, SortOrder: 1, Config: f.count.Config,
			Dependency: &domain.FieldDependency{
				QuestionID:   f.count.ID,
				DependencyID: f.hasSamples.ID,
				Condition:    domain.DependencyCondition{Operator: domain.ConditionEqual, Params: true},
			},
		},
		{Question: *f.comment, TemplateID: f.template.ID, TopicID: f.topicB.ID, SortOrder: 0, Config: f.comment.Config},
	}
	for _, rel := range rels {
		if err := s.UpsertQuestionRel(ctx, rel); err != nil {
			t.Fatalf("upsert rel %s: %v", rel.Question.ID, err)
		}
	}
	return f
}

func newQuestionary(t *testing.T, s *Store, templateID uuid.UUID) *domain.Questionary {
	t.Helper()

	q := &domain.Questionary{
		ID:         uuid.New(),
		TemplateID: templateID,
		CreatorID:  7,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Create(context.Background(), q); err != nil {
		t.Fatalf("create questionary: %v", err)
	}
	return q
}

// --- Templates ---

func TestStore_TemplateSteps(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)

	steps, err := s.GetTemplateSteps(context.Background(), f.template.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Topic.ID != f.topicA.ID || steps[1].Topic.ID != f.topicB.ID {
		t.Error("steps should follow topic sort order")
	}
	if len(steps[0].Fields) != 2 || steps[0].Fields[0].Question.ID != "has_samples" {
		t.Fatalf("unexpected fields in first step: %+v", steps[0].Fields)
	}

	dep := steps[0].Fields[1].Dependency
	if dep == nil {
		t.Fatal("sample_count should carry its dependency")
	}
	if dep.DependencyID != "has_samples" || dep.DependencyNaturalKey != "has_samples" {
		t.Errorf("unexpected dependency: %+v", dep)
	}
	if dep.Condition.Operator != domain.ConditionEqual || dep.Condition.Params != true {
		t.Errorf("unexpected condition: %+v", dep.Condition)
	}

	if _, ok := steps[0].Fields[0].Config.(*fieldconfig.BooleanConfig); !ok {
		t.Errorf("relation config should decode by data type, got %T", steps[0].Fields[0].Config)
	}
}

func TestStore_TemplateSteps_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetTemplateSteps(context.Background(), uuid.New())
	if !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListTemplates_Filter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	active := &domain.Template{ID: uuid.New(), CategoryID: domain.TemplateCategoryProposalQuestionary, Name: "active", CreatedAt: time.Now().UTC()}
	archived := &domain.Template{ID: uuid.New(), CategoryID: domain.TemplateCategorySampleDeclaration, Name: "archived", IsArchived: true, CreatedAt: time.Now().UTC()}
	for _, tpl := range []*domain.Template{active, archived} {
		if err := s.CreateTemplate(ctx, tpl); err != nil {
			t.Fatalf("create template: %v", err)
		}
	}

	all, err := s.ListTemplates(ctx, domain.TemplateFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 templates, got %d", len(all))
	}

	notArchived := false
	list, err := s.ListTemplates(ctx, domain.TemplateFilter{Archived: &notArchived})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ID != active.ID {
		t.Errorf("expected only the active template, got %+v", list)
	}

	category := domain.TemplateCategorySampleDeclaration
	list, err = s.ListTemplates(ctx, domain.TemplateFilter{Category: &category})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ID != archived.ID || !list[0].IsArchived {
		t.Errorf("expected only the sample declaration template, got %+v", list)
	}
}

func TestStore_DeleteTemplate_InUse(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)
	newQuestionary(t, s, f.template.ID)

	_, err := s.DeleteTemplate(context.Background(), f.template.ID)
	if !errors.Is(err, repo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestStore_DeleteTemplate(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	deleted, err := s.DeleteTemplate(ctx, f.template.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted.ID != f.template.ID {
		t.Error("should return the deleted template")
	}

	if _, err := s.GetTopic(ctx, f.topicA.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("topics should be removed with the template, got %v", err)
	}
	if _, err := s.GetQuestion(ctx, f.hasSamples.ID); err != nil {
		t.Errorf("questions should survive template deletion: %v", err)
	}
}

// --- Topics ---

func TestStore_CreateTopic_ShiftsFollowing(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	inserted := &domain.Topic{ID: uuid.New(), TemplateID: f.template.ID, Title: "Inserted", SortOrder: 1, IsEnabled: true}
	if err := s.CreateTopic(ctx, inserted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps, err := s.GetTemplateSteps(ctx, f.template.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []uuid.UUID{f.topicA.ID, inserted.ID, f.topicB.ID}
	for i, id := range want {
		if steps[i].Topic.ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, steps[i].Topic.ID)
		}
	}
}

func TestStore_UpdateTopicOrder(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	if err := s.UpdateTopicOrder(ctx, []uuid.UUID{f.topicB.ID, f.topicA.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps, err := s.GetTemplateSteps(ctx, f.template.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if steps[0].Topic.ID != f.topicB.ID {
		t.Error("topic B should come first")
	}

	if err := s.UpdateTopicOrder(ctx, []uuid.UUID{uuid.New()}); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown topic, got %v", err)
	}
}

func TestStore_DeleteTopic_WithDependents(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	// comment во втором топике зависит от has_samples в первом.
	rel := &domain.QuestionTemplateRelation{
		Question: *f.comment, TemplateID: f.template.ID, TopicID: f.topicB.ID, Config: f.comment.Config,
		Dependency: &domain.FieldDependency{
			QuestionID:   f.comment.ID,
			DependencyID: f.hasSamples.ID,
			Condition:    domain.DependencyCondition{Operator: domain.ConditionEqual, Params: false},
		},
	}
	if err := s.UpsertQuestionRel(ctx, rel); err != nil {
		t.Fatalf("upsert rel: %v", err)
	}

	if _, err := s.DeleteTopic(ctx, f.topicA.ID); !errors.Is(err, repo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	// Топик B удаляется: от его полей никто не зависит.
	if _, err := s.DeleteTopic(ctx, f.topicB.ID); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// --- Questions and relations ---

func TestStore_Question_NaturalKeyUnique(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	dup := newQuestion("another", fieldconfig.DataTypeDate)
	dup.NaturalKey = "has_samples"
	if err := s.CreateQuestion(context.Background(), dup); !errors.Is(err, repo.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestStore_DeleteQuestionRel_WithDependents(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	if err := s.DeleteQuestionRel(ctx, f.template.ID, f.hasSamples.ID); !errors.Is(err, repo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if _, err := s.DeleteQuestion(ctx, f.hasSamples.ID); !errors.Is(err, repo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for question delete, got %v", err)
	}

	if err := s.DeleteQuestionRel(ctx, f.template.ID, f.count.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.DeleteQuestionRel(ctx, f.template.ID, f.count.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_UpsertQuestionRel_MissingDependency(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)

	rel := &domain.QuestionTemplateRelation{
		Question: *f.comment, TemplateID: f.template.ID, TopicID: f.topicB.ID, Config: f.comment.Config,
		Dependency: &domain.FieldDependency{
			QuestionID:   f.comment.ID,
			DependencyID: "not_attached",
			Condition:    domain.DependencyCondition{Operator: domain.ConditionEqual, Params: "x"},
		},
	}
	if err := s.UpsertQuestionRel(context.Background(), rel); !errors.Is(err, repo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

// --- Questionaries ---

func TestStore_Create_UnknownTemplate(t *testing.T) {
	s := openTestStore(t)

	q := &domain.Questionary{ID: uuid.New(), TemplateID: uuid.New(), CreatedAt: time.Now()}
	if err := s.Create(context.Background(), q); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_AnswersAndSteps(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)
	ctx := context.Background()
	q := newQuestionary(t, s, f.template.ID)

	answer := &domain.Answer{QuestionaryID: q.ID, QuestionID: f.count.ID, Value: `"3"`, UpdatedAt: time.Now()}
	if err := s.UpdateAnswer(ctx, answer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	answer.Value = `"4"`
	if err := s.UpdateAnswer(ctx, answer); err != nil {
		t.Fatalf("second write should overwrite: %v", err)
	}

	tc := &domain.TopicCompleteness{QuestionaryID: q.ID, TopicID: f.topicA.ID, IsComplete: true}
	if err := s.UpdateTopicCompleteness(ctx, tc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps, err := s.GetQuestionarySteps(ctx, q.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	field := domain.FindField(steps, f.count.ID)
	if field == nil || field.Value != `"4"` {
		t.Errorf("expected last written value, got %+v", field)
	}
	if !steps[0].IsComplete || steps[1].IsComplete {
		t.Error("only the first topic should be complete")
	}
}

func TestStore_UpdateAnswer_QuestionNotInTemplate(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)
	ctx := context.Background()
	q := newQuestionary(t, s, f.template.ID)

	orphan := newQuestion("orphan", fieldconfig.DataTypeTextInput)
	if err := s.CreateQuestion(ctx, orphan); err != nil {
		t.Fatalf("create question: %v", err)
	}

	answer := &domain.Answer{QuestionaryID: q.ID, QuestionID: orphan.ID, Value: "x", UpdatedAt: time.Now()}
	if err := s.UpdateAnswer(ctx, answer); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	tc := &domain.TopicCompleteness{QuestionaryID: q.ID, TopicID: uuid.New(), IsComplete: true}
	if err := s.UpdateTopicCompleteness(ctx, tc); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign topic, got %v", err)
	}
}

func TestStore_Clone(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)
	ctx := context.Background()
	source := newQuestionary(t, s, f.template.ID)

	if err := s.UpdateAnswer(ctx, &domain.Answer{QuestionaryID: source.ID, QuestionID: f.comment.ID, Value: `"hi"`, UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("update answer: %v", err)
	}

	clone := &domain.Questionary{ID: uuid.New(), CreatorID: 9, ParentID: &source.ID, CreatedAt: time.Now().UTC()}
	if err := s.Clone(ctx, source.ID, clone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clone.TemplateID != f.template.ID {
		t.Error("clone should inherit the template")
	}

	parent, err := s.GetParentQuestionary(ctx, clone.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parent == nil || parent.ID != source.ID {
		t.Errorf("expected source as parent, got %+v", parent)
	}

	steps, err := s.GetQuestionarySteps(ctx, clone.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if field := domain.FindField(steps, f.comment.ID); field == nil || field.Value != `"hi"` {
		t.Errorf("answers should be copied, got %+v", field)
	}

	// Удаление родителя не удаляет клон.
	if _, err := s.Delete(ctx, source.ID); err != nil {
		t.Fatalf("delete source: %v", err)
	}
	parent, err = s.GetParentQuestionary(ctx, clone.ID)
	if err != nil || parent != nil {
		t.Errorf("expected no parent after source deletion, got %+v, %v", parent, err)
	}
}

func TestStore_Delete_NotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Delete(context.Background(), uuid.New()); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeleteStaleQuestionaries(t *testing.T) {
	s := openTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	stale := newQuestionary(t, s, f.template.ID)
	answered := newQuestionary(t, s, f.template.ID)
	if err := s.UpdateAnswer(ctx, &domain.Answer{QuestionaryID: answered.ID, QuestionID: f.comment.ID, Value: "x", UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("update answer: %v", err)
	}

	n, err := s.DeleteStaleQuestionaries(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}

	if _, err := s.GetQuestionary(ctx, stale.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Error("stale questionary should be deleted")
	}
	if _, err := s.GetQuestionary(ctx, answered.ID); err != nil {
		t.Error("answered questionary should survive")
	}
}

// --- Event log ---

func TestStore_InsertEvent_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := events.NewEvent(ctx, events.TypeTemplateCreated, "template", &domain.Template{Name: "x"}, nil)
	for i := 0; i < 2; i++ {
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatalf("insert event: %v", err)
		}
	}

	n, err := s.CountEvents(ctx, events.TypeTemplateCreated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("redelivered event should be stored once, got %d", n)
	}
}
