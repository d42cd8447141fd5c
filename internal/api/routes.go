package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
		Actor(),
	)

	// Templates
	mux.Handle("GET /api/v1/templates", chain(http.HandlerFunc(h.ListTemplates)))
	mux.Handle("POST /api/v1/templates", chain(http.HandlerFunc(h.CreateTemplate)))
	mux.Handle("GET /api/v1/templates/{id}", chain(http.HandlerFunc(h.GetTemplate)))
	mux.Handle("PUT /api/v1/templates/{id}", chain(http.HandlerFunc(h.UpdateTemplate)))
	mux.Handle("DELETE /api/v1/templates/{id}", chain(http.HandlerFunc(h.DeleteTemplate)))
	mux.Handle("GET /api/v1/templates/{id}/steps", chain(http.HandlerFunc(h.GetTemplateSteps)))
	mux.Handle("GET /api/v1/templates/{id}/blank-steps", chain(http.HandlerFunc(h.GetBlankSteps)))

	// Template layout
	mux.Handle("POST /api/v1/templates/{id}/topics", chain(http.HandlerFunc(h.CreateTopic)))
	mux.Handle("PUT /api/v1/templates/{id}/topic-order", chain(http.HandlerFunc(h.UpdateTopicOrder)))
	mux.Handle("PUT /api/v1/templates/{id}/topics/{topicId}/fields", chain(http.HandlerFunc(h.UpdateFieldTopicRel)))
	mux.Handle("PUT /api/v1/templates/{id}/questions/{questionId}", chain(http.HandlerFunc(h.UpdateQuestionRel)))
	mux.Handle("DELETE /api/v1/templates/{id}/questions/{questionId}", chain(http.HandlerFunc(h.DeleteQuestionRel)))

	// Topics
	mux.Handle("PUT /api/v1/topics/{id}", chain(http.HandlerFunc(h.UpdateTopic)))
	mux.Handle("DELETE /api/v1/topics/{id}", chain(http.HandlerFunc(h.DeleteTopic)))

	// Questions
	mux.Handle("POST /api/v1/questions", chain(http.HandlerFunc(h.CreateQuestion)))
	mux.Handle("GET /api/v1/questions/{id}", chain(http.HandlerFunc(h.GetQuestion)))
	mux.Handle("PUT /api/v1/questions/{id}", chain(http.HandlerFunc(h.UpdateQuestion)))
	mux.Handle("DELETE /api/v1/questions/{id}", chain(http.HandlerFunc(h.DeleteQuestion)))

	// Questionaries
	mux.Handle("POST /api/v1/questionaries", chain(http.HandlerFunc(h.CreateQuestionary)))
	mux.Handle("GET /api/v1/questionaries/{id}", chain(http.HandlerFunc(h.GetQuestionary)))
	mux.Handle("DELETE /api/v1/questionaries/{id}", chain(http.HandlerFunc(h.DeleteQuestionary)))
	mux.Handle("GET /api/v1/questionaries/{id}/steps", chain(http.HandlerFunc(h.GetQuestionarySteps)))
	mux.Handle("GET /api/v1/questionaries/{id}/parent", chain(http.HandlerFunc(h.GetParentQuestionary)))
	mux.Handle("POST /api/v1/questionaries/{id}/clone", chain(http.HandlerFunc(h.CloneQuestionary)))
	mux.Handle("PUT /api/v1/questionaries/{id}/answers/{questionId}", chain(http.HandlerFunc(h.UpdateAnswer)))
	mux.Handle("PUT /api/v1/questionaries/{id}/topics/{topicId}/completeness", chain(http.HandlerFunc(h.UpdateTopicCompleteness)))
}
