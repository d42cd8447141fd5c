package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Questionary/internal/catalog"
	"github.com/shaiso/Questionary/internal/domain"
	"github.com/shaiso/Questionary/internal/fieldconfig"
)

// CreateQuestion создаёт вопрос с пустой конфигурацией.
// POST /api/v1/questions
func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.DataType == "" {
		BadRequest(w, "data_type is required")
		return
	}

	question, err := h.catalog.CreateQuestion(r.Context(),
		domain.ParseTemplateCategory(req.Category),
		fieldconfig.DataType(req.DataType),
	)
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, question)
}

// GetQuestion возвращает вопрос по ID.
// GET /api/v1/questions/{id}
func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.catalog.GetQuestion(r.Context(), r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, question)
}

// UpdateQuestion обновляет вопрос.
// PUT /api/v1/questions/{id}
func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	question, err := h.catalog.UpdateQuestion(r.Context(), r.PathValue("id"), catalog.QuestionUpdate{
		NaturalKey: req.NaturalKey,
		Question:   req.Question,
		Config:     req.Config,
	})
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, question)
}

// DeleteQuestion удаляет вопрос. 409, если он подключён к шаблону.
// DELETE /api/v1/questions/{id}
func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.catalog.DeleteQuestion(r.Context(), r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, question)
}
