package engine

import "github.com/shaiso/Questionary/internal/domain"

// ResolveVisibility выставляет IsVisible для всех полей анкеты.
//
// Поле видно, если у него нет зависимости, либо управляющее поле
// видно и его ответ удовлетворяет условию. Поля обходятся в
// топологическом порядке, поэтому скрытие распространяется по цепочке.
// Ошибка вычисления выражения скрывает поле.
//
// При ошибке построения графа все поля помечаются видимыми,
// а ошибка возвращается вызывающему.
func ResolveVisibility(steps []domain.QuestionaryStep) error {
	fields := make(map[string]*domain.QuestionaryField)
	relations := make([]domain.QuestionTemplateRelation, 0)
	answers := make(map[string]any)

	for i := range steps {
		for j := range steps[i].Fields {
			f := &steps[i].Fields[j]
			f.IsVisible = true
			fields[f.Question.ID] = f
			relations = append(relations, f.QuestionTemplateRelation)
			answers[f.Question.NaturalKey] = DecodeAnswer(f.Value)
		}
	}

	g, err := BuildGraph(relations)
	if err != nil {
		return err
	}

	for _, node := range g.Order {
		field := fields[node.ID]
		dep := field.Dependency
		if dep == nil || dep.DependencyID == "" {
			continue
		}

		controller := fields[dep.DependencyID]
		if !controller.IsVisible {
			field.IsVisible = false
			continue
		}

		ok, err := EvaluateCondition(dep.Condition, controller.Value, answers)
		field.IsVisible = err == nil && ok
	}

	return nil
}
