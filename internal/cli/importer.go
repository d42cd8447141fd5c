package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// TemplateFile — описание шаблона для импорта.
//
//	name: Proposal
//	category: PROPOSAL_QUESTIONARY
//	topics:
//	  - title: Samples
//	    fields:
//	      - key: has_samples
//	        type: BOOLEAN
//	        question: Do you bring samples?
//	      - key: sample_count
//	        type: TEXT_INPUT
//	        question: How many?
//	        config: {required: true}
//	        depends_on: {key: has_samples, condition: EQUAL, params: true}
type TemplateFile struct {
	Name        string       `yaml:"name"`
	Category    string       `yaml:"category"`
	Description string       `yaml:"description"`
	Topics      []TopicEntry `yaml:"topics"`
}

// TopicEntry — топик шаблона.
type TopicEntry struct {
	Title  string       `yaml:"title"`
	Fields []FieldEntry `yaml:"fields"`
}

// FieldEntry — вопрос, создаваемый и подключаемый к топику.
// Key становится natural key вопроса.
type FieldEntry struct {
	Key       string         `yaml:"key"`
	Type      string         `yaml:"type"`
	Question  string         `yaml:"question"`
	Config    map[string]any `yaml:"config"`
	DependsOn *DependsOn     `yaml:"depends_on"`
}

// DependsOn — зависимость поля от другого поля файла.
type DependsOn struct {
	Key       string `yaml:"key"`
	Condition string `yaml:"condition"`
	Params    any    `yaml:"params"`
}

// ParseTemplateFile читает и проверяет описание шаблона.
func ParseTemplateFile(r io.Reader) (*TemplateFile, error) {
	var tf TemplateFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&tf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("template file is empty")
		}
		return nil, fmt.Errorf("parse template file: %w", err)
	}

	if err := tf.Validate(); err != nil {
		return nil, err
	}
	return &tf, nil
}

// Validate проверяет обязательные поля и ссылки depends_on.
func (tf *TemplateFile) Validate() error {
	if tf.Name == "" {
		return errors.New("name is required")
	}
	if len(tf.Topics) == 0 {
		return errors.New("at least one topic is required")
	}

	keys := make(map[string]bool)
	for i, topic := range tf.Topics {
		if topic.Title == "" {
			return fmt.Errorf("topic %d: title is required", i+1)
		}
		for _, field := range topic.Fields {
			if field.Key == "" {
				return fmt.Errorf("topic %q: field key is required", topic.Title)
			}
			if field.Type == "" {
				return fmt.Errorf("field %q: type is required", field.Key)
			}
			if keys[field.Key] {
				return fmt.Errorf("field %q: duplicate key", field.Key)
			}
			keys[field.Key] = true
		}
	}

	for _, topic := range tf.Topics {
		for _, field := range topic.Fields {
			if field.DependsOn == nil {
				continue
			}
			if !keys[field.DependsOn.Key] {
				return fmt.Errorf("field %q: depends on unknown key %q", field.Key, field.DependsOn.Key)
			}
			if field.DependsOn.Condition == "" {
				return fmt.Errorf("field %q: dependency condition is required", field.Key)
			}
		}
	}
	return nil
}

// importClient — операции API, нужные импорту.
type importClient interface {
	CreateTemplate(category, name, description string) (*TemplateResponse, error)
	CreateTopic(templateID string, sortOrder int) (*TemplateResponse, error)
	UpdateTopic(id string, req UpdateTopicRequest) (*TopicResponse, error)
	CreateQuestion(category, dataType string) (*QuestionResponse, error)
	UpdateQuestion(id string, req UpdateQuestionRequest) (*QuestionResponse, error)
	UpdateQuestionRel(templateID, questionID string, req UpdateQuestionRelRequest) (*TemplateResponse, error)
}

// ImportTemplate создаёт шаблон по описанию и возвращает его ID.
//
// Зависимости выставляются вторым проходом, после подключения всех
// полей, поэтому depends_on может ссылаться на поле ниже по файлу.
// Импорт не атомарен: при ошибке созданные сущности остаются.
func ImportTemplate(client importClient, tf *TemplateFile) (string, error) {
	template, err := client.CreateTemplate(tf.Category, tf.Name, tf.Description)
	if err != nil {
		return "", fmt.Errorf("create template: %w", err)
	}

	questionIDs := make(map[string]string)
	for i, entry := range tf.Topics {
		topicID, err := createTopic(client, template.ID, i, entry.Title)
		if err != nil {
			return template.ID, err
		}

		for _, field := range entry.Fields {
			id, err := createField(client, template.ID, topicID, tf.Category, field)
			if err != nil {
				return template.ID, fmt.Errorf("field %q: %w", field.Key, err)
			}
			questionIDs[field.Key] = id
		}
	}

	for _, entry := range tf.Topics {
		for _, field := range entry.Fields {
			if field.DependsOn == nil {
				continue
			}
			dep := &Dependency{
				DependencyID: questionIDs[field.DependsOn.Key],
				Condition: Condition{
					Operator: field.DependsOn.Condition,
					Params:   field.DependsOn.Params,
				},
			}
			if _, err := client.UpdateQuestionRel(template.ID, questionIDs[field.Key], UpdateQuestionRelRequest{Dependency: dep}); err != nil {
				return template.ID, fmt.Errorf("field %q: set dependency: %w", field.Key, err)
			}
		}
	}

	return template.ID, nil
}

// createTopic вставляет топик на позицию sortOrder и задаёт заголовок.
func createTopic(client importClient, templateID string, sortOrder int, title string) (string, error) {
	template, err := client.CreateTopic(templateID, sortOrder)
	if err != nil {
		return "", fmt.Errorf("create topic %q: %w", title, err)
	}

	var topicID string
	for _, step := range template.Steps {
		if step.Topic.SortOrder == sortOrder {
			topicID = step.Topic.ID
		}
	}
	if topicID == "" {
		return "", fmt.Errorf("create topic %q: topic not found in response", title)
	}

	if _, err := client.UpdateTopic(topicID, UpdateTopicRequest{Title: &title}); err != nil {
		return "", fmt.Errorf("rename topic %q: %w", title, err)
	}
	return topicID, nil
}

func createField(client importClient, templateID, topicID, category string, field FieldEntry) (string, error) {
	question, err := client.CreateQuestion(category, field.Type)
	if err != nil {
		return "", fmt.Errorf("create question: %w", err)
	}

	update := UpdateQuestionRequest{NaturalKey: &field.Key}
	if field.Question != "" {
		update.Question = &field.Question
	}
	if len(field.Config) > 0 {
		cfg, err := json.Marshal(field.Config)
		if err != nil {
			return "", fmt.Errorf("encode config: %w", err)
		}
		update.Config = cfg
	}

	if _, err := client.UpdateQuestion(question.ID, update); err != nil {
		return "", fmt.Errorf("update question: %w", err)
	}

	if _, err := client.UpdateQuestionRel(templateID, question.ID, UpdateQuestionRelRequest{TopicID: &topicID}); err != nil {
		return "", fmt.Errorf("attach question: %w", err)
	}
	return question.ID, nil
}
