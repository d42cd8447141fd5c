package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Questionary/internal/domain"
)

func field(r domain.QuestionTemplateRelation, value string) domain.QuestionaryField {
	return domain.QuestionaryField{QuestionTemplateRelation: r, Value: value}
}

func TestResolveVisibility_Chain(t *testing.T) {
	steps := []domain.QuestionaryStep{
		{Fields: []domain.QuestionaryField{
			field(rel("A", ""), "yes"),
			field(rel("B", "A"), "yes"),
		}},
		{Fields: []domain.QuestionaryField{
			field(rel("C", "B"), ""),
			field(rel("D", ""), ""),
		}},
	}

	if err := ResolveVisibility(steps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"A", "B", "C", "D"} {
		if !domain.FindField(steps, id).IsVisible {
			t.Errorf("%s should be visible", id)
		}
	}

	// A больше не "yes": B скрыт, C скрыт транзитивно, хотя B = "yes"
	steps[0].Fields[0].Value = "no"
	if err := ResolveVisibility(steps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !domain.FindField(steps, "A").IsVisible {
		t.Error("A should be visible")
	}
	if domain.FindField(steps, "B").IsVisible {
		t.Error("B should be hidden")
	}
	if domain.FindField(steps, "C").IsVisible {
		t.Error("C should be hidden through B")
	}
	if !domain.FindField(steps, "D").IsVisible {
		t.Error("D has no dependency and should be visible")
	}
}

func TestResolveVisibility_DependencyBeforeController(t *testing.T) {
	// зависимое поле стоит раньше управляющего
	steps := []domain.QuestionaryStep{
		{Fields: []domain.QuestionaryField{
			field(rel("B", "A"), ""),
			field(rel("A", ""), "no"),
		}},
	}

	if err := ResolveVisibility(steps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain.FindField(steps, "B").IsVisible {
		t.Error("B should be hidden")
	}
}

func TestResolveVisibility_BrokenExpressionHides(t *testing.T) {
	dependent := rel("B", "A")
	dependent.Dependency.Condition = domain.DependencyCondition{
		Operator: domain.ConditionExpression,
		Params:   `gt .Answer "x"`,
	}

	steps := []domain.QuestionaryStep{
		{Fields: []domain.QuestionaryField{
			field(rel("A", ""), "5"),
			field(dependent, ""),
		}},
	}

	if err := ResolveVisibility(steps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain.FindField(steps, "B").IsVisible {
		t.Error("field with failing expression should be hidden")
	}
}

func TestResolveVisibility_CycleMarksAllVisible(t *testing.T) {
	steps := []domain.QuestionaryStep{
		{Fields: []domain.QuestionaryField{
			field(rel("A", "B"), ""),
			field(rel("B", "A"), ""),
		}},
	}

	err := ResolveVisibility(steps)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	if !steps[0].Fields[0].IsVisible || !steps[0].Fields[1].IsVisible {
		t.Error("fields should stay visible when graph is broken")
	}
}
