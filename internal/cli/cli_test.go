package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleTemplate = `
name: Sample declaration
category: SAMPLE_DECLARATION
topics:
  - title: Samples
    fields:
      - key: has_samples
        type: BOOLEAN
        question: Do you bring samples?
      - key: sample_count
        type: TEXT_INPUT
        question: How many?
        config:
          required: true
        depends_on:
          key: has_samples
          condition: EQUAL
          params: true
  - title: Shipping
    fields:
      - key: courier
        type: TEXT_INPUT
        depends_on: {key: sample_count, condition: EXPRESSION, params: "gt (len .Answer) 0"}
`

func TestParseTemplateFile(t *testing.T) {
	tf, err := ParseTemplateFile(strings.NewReader(sampleTemplate))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tf.Name != "Sample declaration" || len(tf.Topics) != 2 {
		t.Fatalf("unexpected template: %+v", tf)
	}
	field := tf.Topics[0].Fields[1]
	if field.Config["required"] != true {
		t.Errorf("expected config to be parsed, got %v", field.Config)
	}
	if field.DependsOn == nil || field.DependsOn.Params != true {
		t.Errorf("expected dependency params true, got %+v", field.DependsOn)
	}
}

func TestParseTemplateFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"no name", "topics: [{title: A}]", "name is required"},
		{"no topics", "name: T", "at least one topic"},
		{"untitled topic", "name: T\ntopics: [{fields: []}]", "title is required"},
		{"missing type", "name: T\ntopics: [{title: A, fields: [{key: a}]}]", "type is required"},
		{"duplicate key", "name: T\ntopics: [{title: A, fields: [{key: a, type: BOOLEAN}, {key: a, type: DATE}]}]", "duplicate key"},
		{"unknown dependency", "name: T\ntopics: [{title: A, fields: [{key: a, type: BOOLEAN, depends_on: {key: b, condition: EQUAL}}]}]", "unknown key"},
		{"unknown field", "name: T\ncolour: red\ntopics: [{title: A}]", "parse template file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplateFile(strings.NewReader(tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// fakeImportClient запоминает вызовы API импорта.
type fakeImportClient struct {
	topics    []TopicResponse
	renamed   map[string]string
	questions int
	updates   map[string]UpdateQuestionRequest
	rels      map[string][]UpdateQuestionRelRequest
	failOn    string
}

func newFakeImportClient() *fakeImportClient {
	return &fakeImportClient{
		renamed: make(map[string]string),
		updates: make(map[string]UpdateQuestionRequest),
		rels:    make(map[string][]UpdateQuestionRelRequest),
	}
}

func (f *fakeImportClient) CreateTemplate(category, name, description string) (*TemplateResponse, error) {
	return &TemplateResponse{ID: "tmpl", CategoryID: category, Name: name}, nil
}

func (f *fakeImportClient) CreateTopic(templateID string, sortOrder int) (*TemplateResponse, error) {
	f.topics = append(f.topics, TopicResponse{ID: fmt.Sprintf("topic-%d", sortOrder), SortOrder: sortOrder})
	steps := make([]TemplateStep, len(f.topics))
	for i, topic := range f.topics {
		steps[i] = TemplateStep{Topic: topic}
	}
	return &TemplateResponse{ID: templateID, Steps: steps}, nil
}

func (f *fakeImportClient) UpdateTopic(id string, req UpdateTopicRequest) (*TopicResponse, error) {
	f.renamed[id] = *req.Title
	return &TopicResponse{ID: id, Title: *req.Title}, nil
}

func (f *fakeImportClient) CreateQuestion(category, dataType string) (*QuestionResponse, error) {
	if dataType == f.failOn {
		return nil, &APIError{Status: http.StatusBadRequest, Code: "INVALID_ARGUMENT", Message: "unknown data type"}
	}
	f.questions++
	return &QuestionResponse{ID: fmt.Sprintf("q%d", f.questions), DataType: dataType}, nil
}

func (f *fakeImportClient) UpdateQuestion(id string, req UpdateQuestionRequest) (*QuestionResponse, error) {
	f.updates[id] = req
	return &QuestionResponse{ID: id, NaturalKey: *req.NaturalKey}, nil
}

func (f *fakeImportClient) UpdateQuestionRel(templateID, questionID string, req UpdateQuestionRelRequest) (*TemplateResponse, error) {
	f.rels[questionID] = append(f.rels[questionID], req)
	return &TemplateResponse{ID: templateID}, nil
}

func TestImportTemplate(t *testing.T) {
	tf, err := ParseTemplateFile(strings.NewReader(sampleTemplate))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	client := newFakeImportClient()
	id, err := ImportTemplate(client, tf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "tmpl" {
		t.Errorf("expected template id tmpl, got %s", id)
	}

	if client.renamed["topic-0"] != "Samples" || client.renamed["topic-1"] != "Shipping" {
		t.Errorf("unexpected topic titles: %v", client.renamed)
	}

	if got := *client.updates["q2"].NaturalKey; got != "sample_count" {
		t.Errorf("expected natural key sample_count, got %s", got)
	}
	if string(client.updates["q2"].Config) != `{"required":true}` {
		t.Errorf("unexpected config: %s", client.updates["q2"].Config)
	}

	// q2: attach + dependency
	rels := client.rels["q2"]
	if len(rels) != 2 {
		t.Fatalf("expected attach and dependency calls, got %d", len(rels))
	}
	if *rels[0].TopicID != "topic-0" {
		t.Errorf("expected q2 in topic-0, got %s", *rels[0].TopicID)
	}
	if dep := rels[1].Dependency; dep == nil || dep.DependencyID != "q1" || dep.Condition.Operator != "EQUAL" {
		t.Errorf("unexpected dependency: %+v", dep)
	}

	if dep := client.rels["q3"][1].Dependency; dep.DependencyID != "q2" {
		t.Errorf("expected courier to depend on q2, got %s", dep.DependencyID)
	}
	if len(client.rels["q1"]) != 1 {
		t.Errorf("has_samples should only be attached, got %d calls", len(client.rels["q1"]))
	}
}

func TestImportTemplate_Error(t *testing.T) {
	tf, err := ParseTemplateFile(strings.NewReader(sampleTemplate))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	client := newFakeImportClient()
	client.failOn = "BOOLEAN"

	id, err := ImportTemplate(client, tf)
	if err == nil {
		t.Fatal("expected error")
	}
	if id != "tmpl" {
		t.Errorf("partial import should report template id, got %q", id)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "INVALID_ARGUMENT" {
		t.Errorf("expected wrapped APIError, got %v", err)
	}
}

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/templates":
			if r.URL.Query().Get("archived") != "false" {
				t.Errorf("expected archived filter, got %q", r.URL.RawQuery)
			}
			fmt.Fprint(w, `{"data":[{"id":"t1","name":"Proposal"}],"total":1}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/questionaries":
			if r.Header.Get("X-User-Id") != "42" {
				t.Errorf("expected X-User-Id header, got %q", r.Header.Get("X-User-Id"))
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"data":{"id":"q1","template_id":%q,"creator_id":42}}`, body["template_id"])
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":"NOT_FOUND","message":"questionary not found"}}`)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "42")

	archived := false
	templates, err := client.ListTemplates(ListTemplatesOpts{Archived: &archived})
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(templates) != 1 || templates[0].Name != "Proposal" {
		t.Errorf("unexpected templates: %+v", templates)
	}

	questionary, err := client.CreateQuestionary("t1")
	if err != nil {
		t.Fatalf("create questionary: %v", err)
	}
	if questionary.TemplateID != "t1" || questionary.CreatorID != 42 {
		t.Errorf("unexpected questionary: %+v", questionary)
	}

	_, err = client.GetQuestionary("missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected APIError 404, got %v", err)
	}
	if apiErr.Error() != "NOT_FOUND: questionary not found" {
		t.Errorf("unexpected message: %s", apiErr.Error())
	}
}

func TestOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer

	NewOutputTo(false, &stdout, &stderr).Print([]string{"ID", "NAME"}, [][]string{{"t1", "Proposal"}}, nil)
	if !strings.Contains(stdout.String(), "ID") || !strings.Contains(stdout.String(), "Proposal") {
		t.Errorf("unexpected table output: %q", stdout.String())
	}

	stdout.Reset()
	NewOutputTo(false, &stdout, &stderr).Print([]string{"ID"}, nil, nil)
	if stdout.Len() != 0 || !strings.Contains(stderr.String(), "No results") {
		t.Errorf("empty table should report no results, got %q / %q", stdout.String(), stderr.String())
	}

	stdout.Reset()
	NewOutputTo(true, &stdout, &stderr).Print(nil, nil, map[string]string{"id": "t1"})
	if !strings.Contains(stdout.String(), `"id": "t1"`) {
		t.Errorf("unexpected JSON output: %q", stdout.String())
	}
}
