package engine

import (
	"fmt"

	"github.com/shaiso/Questionary/internal/domain"
)

// ValidateDependencies выполняет полную валидацию зависимостей шаблона.
//
// Проверяет:
// - Принадлежность dependency своему вопросу
// - Отсутствие self-dependency
// - Известность оператора и корректность выражения
// - Ссылки только на вопросы этого шаблона
// - Отсутствие циклов (делегируется Graph)
func ValidateDependencies(relations []domain.QuestionTemplateRelation) error {
	for i := range relations {
		if err := ValidateDependency(&relations[i]); err != nil {
			return err
		}
	}

	if _, err := BuildGraph(relations); err != nil {
		return err
	}

	return nil
}

// ValidateDependency проверяет одну зависимость без учёта остальных relations.
func ValidateDependency(rel *domain.QuestionTemplateRelation) error {
	dep := rel.Dependency
	if dep == nil {
		return nil
	}

	questionID := rel.Question.ID

	if dep.QuestionID != "" && dep.QuestionID != questionID {
		return NewValidationError(questionID, "question_id",
			fmt.Sprintf("dependency declared for question %s", dep.QuestionID), ErrDependencyMismatch)
	}

	if dep.DependencyID == "" {
		return NewValidationError(questionID, "dependency_id",
			"dependency has empty dependency_id", ErrMissingDependency)
	}

	if dep.DependencyID == questionID {
		return NewValidationError(questionID, "dependency_id",
			"question depends on itself", ErrSelfDependency)
	}

	if !dep.Condition.Operator.IsValid() {
		return NewValidationError(questionID, "condition",
			fmt.Sprintf("unknown condition operator: %q", dep.Condition.Operator), ErrUnknownOperator)
	}

	if dep.Condition.Operator == domain.ConditionExpression {
		expr, ok := dep.Condition.Params.(string)
		if !ok {
			return NewValidationError(questionID, "params",
				"expression must be a string", ErrConditionParse)
		}
		if err := ParseExpression(expr); err != nil {
			return NewValidationError(questionID, "params", err.Error(), ErrConditionParse)
		}
	}

	return nil
}
