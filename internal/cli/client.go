package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из domain, CLI не импортирует internal/) ---

// TemplateResponse — шаблон из API.
type TemplateResponse struct {
	ID          string         `json:"id"`
	CategoryID  string         `json:"category_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	IsArchived  bool           `json:"is_archived"`
	CreatedAt   string         `json:"created_at"`
	Steps       []TemplateStep `json:"steps,omitempty"`
}

// TopicResponse — топик шаблона из API.
type TopicResponse struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Title      string `json:"title"`
	SortOrder  int    `json:"sort_order"`
	IsEnabled  bool   `json:"is_enabled"`
}

// TemplateStep — топик с подключёнными полями.
type TemplateStep struct {
	Topic  TopicResponse   `json:"topic"`
	Fields []FieldResponse `json:"fields"`
}

// FieldResponse — вопрос, подключённый к шаблону.
type FieldResponse struct {
	Question   QuestionResponse `json:"question"`
	TopicID    string           `json:"topic_id"`
	SortOrder  int              `json:"sort_order"`
	Config     json.RawMessage  `json:"config,omitempty"`
	Dependency *Dependency      `json:"dependency,omitempty"`
}

// Dependency — правило видимости поля.
type Dependency struct {
	QuestionID           string    `json:"question_id,omitempty"`
	DependencyID         string    `json:"dependency_id"`
	DependencyNaturalKey string    `json:"dependency_natural_key,omitempty"`
	Condition            Condition `json:"condition"`
}

// Condition — условие на ответ управляющего вопроса.
type Condition struct {
	Operator string `json:"condition"`
	Params   any    `json:"params"`
}

// QuestionResponse — вопрос из API.
type QuestionResponse struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"category_id"`
	NaturalKey string          `json:"natural_key"`
	DataType   string          `json:"data_type"`
	Question   string          `json:"question"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// QuestionaryResponse — анкета из API.
type QuestionaryResponse struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	CreatorID  int64  `json:"creator_id"`
	ParentID   string `json:"parent_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// QuestionaryStep — топик анкеты с ответами.
type QuestionaryStep struct {
	Topic      TopicResponse      `json:"topic"`
	IsComplete bool               `json:"is_complete"`
	Fields     []QuestionaryField `json:"fields"`
}

// QuestionaryField — поле анкеты с ответом.
type QuestionaryField struct {
	Question  QuestionResponse `json:"question"`
	Value     string           `json:"value"`
	IsVisible bool             `json:"is_visible"`
}

// --- Request types ---

// UpdateTemplateRequest — обновление шаблона.
type UpdateTemplateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsArchived  *bool   `json:"is_archived,omitempty"`
}

// UpdateTopicRequest — обновление топика.
type UpdateTopicRequest struct {
	Title     *string `json:"title,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
	IsEnabled *bool   `json:"is_enabled,omitempty"`
}

// UpdateQuestionRequest — обновление вопроса.
type UpdateQuestionRequest struct {
	NaturalKey *string         `json:"natural_key,omitempty"`
	Question   *string         `json:"question,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// UpdateQuestionRelRequest — подключение или изменение поля шаблона.
type UpdateQuestionRelRequest struct {
	TopicID         *string         `json:"topic_id,omitempty"`
	SortOrder       *int            `json:"sort_order,omitempty"`
	Config          json.RawMessage `json:"config,omitempty"`
	Dependency      *Dependency     `json:"dependency,omitempty"`
	ClearDependency bool            `json:"clear_dependency,omitempty"`
}

// ListTemplatesOpts — параметры фильтрации шаблонов.
type ListTemplatesOpts struct {
	Category string
	Archived *bool
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Questionary API.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// NewClient создаёт клиент для API. userID (если не пустой)
// передаётся в заголовке X-User-Id.
func NewClient(baseURL, userID string) *Client {
	return &Client{
		baseURL: baseURL,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Templates ---

// ListTemplates возвращает шаблоны с фильтрацией.
func (c *Client) ListTemplates(opts ListTemplatesOpts) ([]TemplateResponse, error) {
	params := url.Values{}
	if opts.Category != "" {
		params.Set("category", opts.Category)
	}
	if opts.Archived != nil {
		params.Set("archived", strconv.FormatBool(*opts.Archived))
	}

	var templates []TemplateResponse
	err := c.list("/api/v1/templates", params, &templates)
	return templates, err
}

// CreateTemplate создаёт пустой шаблон.
func (c *Client) CreateTemplate(category, name, description string) (*TemplateResponse, error) {
	body := map[string]string{"category": category, "name": name, "description": description}
	var template TemplateResponse
	err := c.post("/api/v1/templates", body, &template)
	return &template, err
}

// GetTemplate возвращает шаблон с шагами.
func (c *Client) GetTemplate(id string) (*TemplateResponse, error) {
	var template TemplateResponse
	err := c.get("/api/v1/templates/"+id, &template)
	return &template, err
}

// UpdateTemplate обновляет метаданные шаблона.
func (c *Client) UpdateTemplate(id string, req UpdateTemplateRequest) (*TemplateResponse, error) {
	var template TemplateResponse
	err := c.put("/api/v1/templates/"+id, req, &template)
	return &template, err
}

// DeleteTemplate удаляет шаблон.
func (c *Client) DeleteTemplate(id string) error {
	return c.delete("/api/v1/templates/" + id)
}

// CreateTopic вставляет топик на позицию sortOrder.
func (c *Client) CreateTopic(templateID string, sortOrder int) (*TemplateResponse, error) {
	body := map[string]int{"sort_order": sortOrder}
	var template TemplateResponse
	err := c.post("/api/v1/templates/"+templateID+"/topics", body, &template)
	return &template, err
}

// UpdateTopic обновляет топик.
func (c *Client) UpdateTopic(id string, req UpdateTopicRequest) (*TopicResponse, error) {
	var topic TopicResponse
	err := c.put("/api/v1/topics/"+id, req, &topic)
	return &topic, err
}

// DeleteTopic удаляет топик.
func (c *Client) DeleteTopic(id string) error {
	return c.delete("/api/v1/topics/" + id)
}

// UpdateQuestionRel подключает вопрос к шаблону или меняет поле.
func (c *Client) UpdateQuestionRel(templateID, questionID string, req UpdateQuestionRelRequest) (*TemplateResponse, error) {
	var template TemplateResponse
	err := c.put("/api/v1/templates/"+templateID+"/questions/"+questionID, req, &template)
	return &template, err
}

// DeleteQuestionRel отключает вопрос от шаблона.
func (c *Client) DeleteQuestionRel(templateID, questionID string) error {
	return c.delete("/api/v1/templates/" + templateID + "/questions/" + questionID)
}

// --- Questions ---

// CreateQuestion создаёт вопрос с пустой конфигурацией.
func (c *Client) CreateQuestion(category, dataType string) (*QuestionResponse, error) {
	body := map[string]string{"category": category, "data_type": dataType}
	var question QuestionResponse
	err := c.post("/api/v1/questions", body, &question)
	return &question, err
}

// GetQuestion возвращает вопрос по ID.
func (c *Client) GetQuestion(id string) (*QuestionResponse, error) {
	var question QuestionResponse
	err := c.get("/api/v1/questions/"+id, &question)
	return &question, err
}

// UpdateQuestion обновляет вопрос.
func (c *Client) UpdateQuestion(id string, req UpdateQuestionRequest) (*QuestionResponse, error) {
	var question QuestionResponse
	err := c.put("/api/v1/questions/"+id, req, &question)
	return &question, err
}

// DeleteQuestion удаляет вопрос.
func (c *Client) DeleteQuestion(id string) error {
	return c.delete("/api/v1/questions/" + id)
}

// --- Questionaries ---

// CreateQuestionary создаёт анкету по шаблону.
func (c *Client) CreateQuestionary(templateID string) (*QuestionaryResponse, error) {
	body := map[string]string{"template_id": templateID}
	var questionary QuestionaryResponse
	err := c.post("/api/v1/questionaries", body, &questionary)
	return &questionary, err
}

// GetQuestionary возвращает анкету по ID.
func (c *Client) GetQuestionary(id string) (*QuestionaryResponse, error) {
	var questionary QuestionaryResponse
	err := c.get("/api/v1/questionaries/"+id, &questionary)
	return &questionary, err
}

// GetQuestionarySteps возвращает шаги анкеты.
func (c *Client) GetQuestionarySteps(id string) ([]QuestionaryStep, error) {
	var steps []QuestionaryStep
	err := c.list("/api/v1/questionaries/"+id+"/steps", nil, &steps)
	return steps, err
}

// UpdateAnswer записывает ответ.
func (c *Client) UpdateAnswer(questionaryID, questionID, value string) error {
	body := map[string]string{"value": value}
	return c.put("/api/v1/questionaries/"+questionaryID+"/answers/"+questionID, body, nil)
}

// UpdateTopicCompleteness выставляет флаг заполненности топика.
func (c *Client) UpdateTopicCompleteness(questionaryID, topicID string, isComplete bool) error {
	body := map[string]bool{"is_complete": isComplete}
	return c.put("/api/v1/questionaries/"+questionaryID+"/topics/"+topicID+"/completeness", body, nil)
}

// CloneQuestionary копирует анкету.
func (c *Client) CloneQuestionary(id string) (*QuestionaryResponse, error) {
	var questionary QuestionaryResponse
	err := c.post("/api/v1/questionaries/"+id+"/clone", nil, &questionary)
	return &questionary, err
}

// DeleteQuestionary удаляет анкету.
func (c *Client) DeleteQuestionary(id string) error {
	return c.delete("/api/v1/questionaries/" + id)
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set("X-User-Id", c.userID)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return &APIError{Status: resp.StatusCode, Code: er.Error.Code, Message: er.Error.Message}
}

// APIError — ошибка, которую вернул API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
