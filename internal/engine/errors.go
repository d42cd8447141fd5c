package engine

import "errors"

// Ошибки валидации зависимостей.
var (
	// ErrMissingDependency — зависимость ссылается на вопрос, не подключённый к шаблону.
	ErrMissingDependency = errors.New("dependency references unknown question")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrSelfDependency — вопрос зависит от самого себя.
	ErrSelfDependency = errors.New("question depends on itself")

	// ErrUnknownOperator — неизвестный оператор условия.
	ErrUnknownOperator = errors.New("unknown condition operator")

	// ErrDependencyMismatch — dependency.question_id не совпадает с вопросом relation.
	ErrDependencyMismatch = errors.New("dependency belongs to another question")

	// ErrDuplicateQuestion — вопрос подключён к шаблону дважды.
	ErrDuplicateQuestion = errors.New("duplicate question in template")
)

// Ошибки вычисления условий.
var (
	// ErrConditionRender — ошибка вычисления выражения.
	ErrConditionRender = errors.New("condition render failed")

	// ErrConditionParse — ошибка парсинга выражения.
	ErrConditionParse = errors.New("condition parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	QuestionID string // вопрос, где произошла ошибка
	Field      string // поле, вызвавшее ошибку
	Message    string // описание ошибки
	Err        error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.QuestionID != "" {
		return "question " + e.QuestionID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(questionID, field, message string, err error) *ValidationError {
	return &ValidationError{
		QuestionID: questionID,
		Field:      field,
		Message:    message,
		Err:        err,
	}
}
