package domain

// ConditionOperator — оператор условия зависимости.
type ConditionOperator string

const (
	// ConditionEqual — ответ управляющего вопроса равен Params
	// (для списков — содержит Params).
	ConditionEqual ConditionOperator = "EQUAL"

	// ConditionNotEqual — ответ не равен Params.
	ConditionNotEqual ConditionOperator = "NOT_EQUAL"

	// ConditionExpression — Params содержит булево выражение Go template,
	// например: eq .Answer "yes".
	ConditionExpression ConditionOperator = "EXPRESSION"
)

// IsValid возвращает true для известных операторов.
func (o ConditionOperator) IsValid() bool {
	switch o {
	case ConditionEqual, ConditionNotEqual, ConditionExpression:
		return true
	default:
		return false
	}
}

// DependencyCondition — условие, которому должен удовлетворять ответ.
type DependencyCondition struct {
	Operator ConditionOperator `json:"condition"`
	Params   any               `json:"params"`
}

// FieldDependency — правило: вопрос QuestionID показывается (и требуется)
// только если ответ на DependencyID удовлетворяет Condition.
//
// Инвариант: зависимости внутри шаблона не образуют циклов.
type FieldDependency struct {
	// QuestionID — зависимый вопрос.
	QuestionID string `json:"question_id"`

	// DependencyID — управляющий вопрос.
	DependencyID string `json:"dependency_id"`

	// DependencyNaturalKey — natural key управляющего вопроса (для клиента).
	DependencyNaturalKey string `json:"dependency_natural_key,omitempty"`

	// Condition — условие на ответ управляющего вопроса.
	Condition DependencyCondition `json:"condition"`
}
