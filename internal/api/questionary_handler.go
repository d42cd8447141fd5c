package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/events"
)

// CreateQuestionary создаёт анкету по шаблону.
// POST /api/v1/questionaries
func (h *Handler) CreateQuestionary(w http.ResponseWriter, r *http.Request) {
	var req CreateQuestionaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.TemplateID == uuid.Nil {
		BadRequest(w, "template_id is required")
		return
	}

	creatorID, ok := creatorFrom(w, r, req.CreatorID)
	if !ok {
		return
	}

	questionary, err := h.questionaries.Create(r.Context(), creatorID, req.TemplateID)
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, questionary)
}

// GetQuestionary возвращает анкету по ID.
// GET /api/v1/questionaries/{id}
func (h *Handler) GetQuestionary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid questionary id")
	if !ok {
		return
	}

	questionary, err := h.questionaries.Get(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, questionary)
}

// DeleteQuestionary удаляет анкету вместе с ответами.
// DELETE /api/v1/questionaries/{id}
func (h *Handler) DeleteQuestionary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid questionary id")
	if !ok {
		return
	}

	questionary, err := h.questionaries.Delete(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, questionary)
}

// GetQuestionarySteps возвращает шаги анкеты с ответами и видимостью полей.
// GET /api/v1/questionaries/{id}/steps
func (h *Handler) GetQuestionarySteps(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid questionary id")
	if !ok {
		return
	}

	steps, err := h.questionaries.GetQuestionarySteps(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	List(w, steps, len(steps))
}

// GetParentQuestionary возвращает анкету-источник клона.
// Для анкеты без родителя data = null.
// GET /api/v1/questionaries/{id}/parent
func (h *Handler) GetParentQuestionary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid questionary id")
	if !ok {
		return
	}

	parent, err := h.questionaries.GetParentQuestionary(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, parent)
}

// CloneQuestionary копирует анкету вместе с ответами.
// POST /api/v1/questionaries/{id}/clone
func (h *Handler) CloneQuestionary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid questionary id")
	if !ok {
		return
	}

	// Тело необязательно
	var req CloneQuestionaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	creatorID, ok := creatorFrom(w, r, req.CreatorID)
	if !ok {
		return
	}

	clone, err := h.questionaries.Clone(r.Context(), id, creatorID)
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, clone)
}

// UpdateAnswer записывает ответ на вопрос анкеты.
// PUT /api/v1/questionaries/{id}/answers/{questionId}
func (h *Handler) UpdateAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid questionary id")
	if !ok {
		return
	}

	var req UpdateAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	answer, err := h.questionaries.UpdateAnswer(r.Context(), id, r.PathValue("questionId"), req.Value)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, answer)
}

// UpdateTopicCompleteness выставляет флаг заполненности топика.
// PUT /api/v1/questionaries/{id}/topics/{topicId}/completeness
func (h *Handler) UpdateTopicCompleteness(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid questionary id")
	if !ok {
		return
	}
	topicID, ok := pathUUID(w, r, "topicId", "invalid topic id")
	if !ok {
		return
	}

	var req UpdateTopicCompletenessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	tc, err := h.questionaries.UpdateTopicCompleteness(r.Context(), id, topicID, req.IsComplete)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, tc)
}

// creatorFrom возвращает автора анкеты: явный creator_id или X-User-Id.
func creatorFrom(w http.ResponseWriter, r *http.Request, explicit *int64) (int64, bool) {
	if explicit != nil {
		return *explicit, true
	}
	if actor, ok := events.ActorFrom(r.Context()); ok {
		return actor, true
	}
	NotAuthorized(w, "creator is unknown: set creator_id or "+HeaderUserID)
	return 0, false
}
