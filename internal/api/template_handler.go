package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/catalog"
	"github.com/shaiso/Questionary/internal/domain"
)

// ListTemplates возвращает список шаблонов.
// GET /api/v1/templates?category=&archived=
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var filter domain.TemplateFilter

	if c := r.URL.Query().Get("category"); c != "" {
		category := domain.ParseTemplateCategory(c)
		filter.Category = &category
	}

	if a := r.URL.Query().Get("archived"); a != "" {
		archived, err := strconv.ParseBool(a)
		if err != nil {
			BadRequest(w, "invalid archived filter")
			return
		}
		filter.Archived = &archived
	}

	templates, err := h.catalog.ListTemplates(r.Context(), filter)
	if HandleError(w, h.logger, err) {
		return
	}

	List(w, templates, len(templates))
}

// CreateTemplate создаёт пустой шаблон.
// POST /api/v1/templates
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	template, err := h.catalog.CreateTemplate(r.Context(), domain.ParseTemplateCategory(req.Category), req.Name, req.Description)
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, template)
}

// GetTemplate возвращает шаблон вместе с шагами.
// GET /api/v1/templates/{id}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid template id")
	if !ok {
		return
	}

	template, err := h.catalog.GetTemplate(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, template)
}

// UpdateTemplate обновляет метаданные шаблона.
// PUT /api/v1/templates/{id}
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid template id")
	if !ok {
		return
	}

	var req UpdateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	template, err := h.catalog.UpdateTemplateMetadata(r.Context(), id, catalog.TemplateUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsArchived:  req.IsArchived,
	})
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, template)
}

// DeleteTemplate удаляет шаблон. 409, если по нему созданы анкеты.
// DELETE /api/v1/templates/{id}
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid template id")
	if !ok {
		return
	}

	template, err := h.catalog.DeleteTemplate(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, template)
}

// GetTemplateSteps возвращает топики шаблона с подключёнными полями.
// GET /api/v1/templates/{id}/steps
func (h *Handler) GetTemplateSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid template id")
	if !ok {
		return
	}

	steps, err := h.catalog.GetTemplateSteps(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	List(w, steps, len(steps))
}

// GetBlankSteps возвращает шаги шаблона с пустыми ответами.
// GET /api/v1/templates/{id}/blank-steps
func (h *Handler) GetBlankSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid template id")
	if !ok {
		return
	}

	steps, err := h.questionaries.GetBlankQuestionarySteps(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	List(w, steps, len(steps))
}

// CreateTopic вставляет топик в шаблон.
// POST /api/v1/templates/{id}/topics
func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid template id")
	if !ok {
		return
	}

	var req CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	template, err := h.catalog.CreateTopic(r.Context(), id, req.SortOrder)
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, template)
}

// UpdateTopicOrder задаёт порядок топиков шаблона.
// PUT /api/v1/templates/{id}/topic-order
func (h *Handler) UpdateTopicOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathUUID(w, r, "id", "invalid template id"); !ok {
		return
	}

	var req UpdateTopicOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	order, err := h.catalog.UpdateTopicOrder(r.Context(), req.TopicIDs)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, order)
}

// UpdateFieldTopicRel переносит поля в топик в заданном порядке.
// PUT /api/v1/templates/{id}/topics/{topicId}/fields
func (h *Handler) UpdateFieldTopicRel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid template id")
	if !ok {
		return
	}
	topicID, ok := pathUUID(w, r, "topicId", "invalid topic id")
	if !ok {
		return
	}

	var req UpdateFieldTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	order, err := h.catalog.UpdateFieldTopicRel(r.Context(), id, topicID, req.QuestionIDs)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, order)
}

// UpdateQuestionRel подключает вопрос к шаблону или меняет поле.
// PUT /api/v1/templates/{id}/questions/{questionId}
func (h *Handler) UpdateQuestionRel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid template id")
	if !ok {
		return
	}

	var req UpdateQuestionRelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	template, err := h.catalog.UpdateQuestionRel(r.Context(), catalog.QuestionRelUpdate{
		TemplateID:      id,
		QuestionID:      r.PathValue("questionId"),
		TopicID:         req.TopicID,
		SortOrder:       req.SortOrder,
		Config:          req.Config,
		Dependency:      req.Dependency,
		ClearDependency: req.ClearDependency,
	})
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, template)
}

// DeleteQuestionRel отключает вопрос от шаблона.
// DELETE /api/v1/templates/{id}/questions/{questionId}
func (h *Handler) DeleteQuestionRel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid template id")
	if !ok {
		return
	}

	template, err := h.catalog.DeleteQuestionRel(r.Context(), id, r.PathValue("questionId"))
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, template)
}

// UpdateTopic обновляет топик.
// PUT /api/v1/topics/{id}
func (h *Handler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid topic id")
	if !ok {
		return
	}

	var req UpdateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	topic, err := h.catalog.UpdateTopic(r.Context(), id, catalog.TopicUpdate{
		Title:     req.Title,
		SortOrder: req.SortOrder,
		IsEnabled: req.IsEnabled,
	})
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, topic)
}

// DeleteTopic удаляет топик вместе с его полями.
// DELETE /api/v1/topics/{id}
func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid topic id")
	if !ok {
		return
	}

	topic, err := h.catalog.DeleteTopic(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, topic)
}

// pathUUID парсит UUID из пути; при ошибке отвечает 400.
func pathUUID(w http.ResponseWriter, r *http.Request, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		BadRequest(w, message)
		return uuid.Nil, false
	}
	return id, true
}
