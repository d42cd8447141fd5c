package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/Questionary/internal/rejection"
)

// ErrorCode — код ошибки API. Совпадает с причиной отказа сервиса.
type ErrorCode = rejection.Reason

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, rejection.ReasonInvalidArgument, message)
}

// NotAuthorized отправляет ошибку 401.
func NotAuthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, rejection.ReasonNotAuthorized, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, rejection.ReasonInternalError, "internal server error")
}

// StatusOf возвращает HTTP статус для причины отказа.
func StatusOf(reason rejection.Reason) int {
	switch reason {
	case rejection.ReasonNotFound:
		return http.StatusNotFound
	case rejection.ReasonInvalidArgument:
		return http.StatusBadRequest
	case rejection.ReasonNotAuthorized:
		return http.StatusUnauthorized
	case rejection.ReasonInsufficientPermissions:
		return http.StatusForbidden
	case rejection.ReasonInvalidState:
		return http.StatusConflict
	case rejection.ReasonInvalidDependency:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HandleError преобразует отказ сервиса в HTTP ответ.
// Возвращает false, если err == nil.
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	var r *rejection.Rejection
	if !errors.As(err, &r) || r.Reason == rejection.ReasonInternalError {
		InternalError(w, logger, err)
		return true
	}

	message := r.Message
	if message == "" {
		message = string(r.Reason)
	}
	Error(w, StatusOf(r.Reason), r.Reason, message)
	return true
}
