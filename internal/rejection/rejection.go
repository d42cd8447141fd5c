// Package rejection содержит типизированный отказ, которым сервисы
// отвечают вместо сырых ошибок хранилища.
//
// Rejection несёт код причины (Reason), понятный API-слою, и
// исходную ошибку для логов. Сравнение через errors.Is идёт по причине:
//
//	if errors.Is(err, rejection.ErrNotFound) { ... }
package rejection

import "errors"

// Reason — код причины отказа.
type Reason string

const (
	// ReasonNotFound — указанный ID не существует.
	ReasonNotFound Reason = "NOT_FOUND"

	// ReasonInternalError — хранилище вернуло неожиданную ошибку.
	ReasonInternalError Reason = "INTERNAL_ERROR"

	// ReasonInsufficientPermissions — у вызывающего нет нужной роли.
	ReasonInsufficientPermissions Reason = "INSUFFICIENT_PERMISSIONS"

	// ReasonNotAuthorized — вызывающий не аутентифицирован.
	ReasonNotAuthorized Reason = "NOT_AUTHORIZED"

	// ReasonInvalidArgument — некорректные входные данные.
	ReasonInvalidArgument Reason = "INVALID_ARGUMENT"

	// ReasonInvalidDependency — правило зависимости поля некорректно.
	ReasonInvalidDependency Reason = "INVALID_DEPENDENCY"

	// ReasonInvalidState — операция невозможна в текущем состоянии
	// (например, шаблон используется анкетами).
	ReasonInvalidState Reason = "INVALID_STATE"
)

// String возвращает строковое представление Reason.
func (r Reason) String() string {
	return string(r)
}

// Rejection — отказ с кодом причины.
type Rejection struct {
	Reason  Reason
	Message string
	Err     error
}

// Сентинелы для errors.Is.
var (
	ErrNotFound                = &Rejection{Reason: ReasonNotFound}
	ErrInternal                = &Rejection{Reason: ReasonInternalError}
	ErrInsufficientPermissions = &Rejection{Reason: ReasonInsufficientPermissions}
	ErrNotAuthorized           = &Rejection{Reason: ReasonNotAuthorized}
	ErrInvalidArgument         = &Rejection{Reason: ReasonInvalidArgument}
	ErrInvalidDependency       = &Rejection{Reason: ReasonInvalidDependency}
	ErrInvalidState            = &Rejection{Reason: ReasonInvalidState}
)

// New создаёт отказ с сообщением.
func New(reason Reason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

// Wrap создаёт отказ, сохраняющий исходную ошибку.
func Wrap(reason Reason, message string, err error) *Rejection {
	return &Rejection{Reason: reason, Message: message, Err: err}
}

// Error реализует интерфейс error.
func (r *Rejection) Error() string {
	if r.Message != "" {
		return string(r.Reason) + ": " + r.Message
	}
	return string(r.Reason)
}

// Unwrap возвращает исходную ошибку.
func (r *Rejection) Unwrap() error {
	return r.Err
}

// Is сравнивает отказы по причине.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	if !ok {
		return false
	}
	return r.Reason == t.Reason
}

// ReasonOf возвращает причину отказа из цепочки ошибок.
// Для ошибок без Rejection возвращает INTERNAL_ERROR, для nil — пустую строку.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason
	}
	return ReasonInternalError
}

// IsRejection возвращает true, если в цепочке ошибок есть Rejection.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}
