package repo

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/domain"
	"github.com/shaiso/Questionary/internal/fieldconfig"
)

// Колонки конфигурации и зависимостей хранятся как JSON-текст,
// одинаково для PostgreSQL и SQLite.

// EncodeConfig сериализует конфигурацию поля.
func EncodeConfig(cfg fieldconfig.Config) (string, error) {
	return fieldconfig.Encode(cfg)
}

// DecodeConfig восстанавливает конфигурацию поля по типу данных.
func DecodeConfig(dataType fieldconfig.DataType, raw string) (fieldconfig.Config, error) {
	cfg, err := fieldconfig.Decode(dataType, raw)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// EncodeDependency возвращает значения колонок dependency_question_id
// и dependency_condition (nil для поля без зависимости).
func EncodeDependency(dep *domain.FieldDependency) (*string, *string, error) {
	if dep == nil || dep.DependencyID == "" {
		return nil, nil, nil
	}
	b, err := json.Marshal(dep.Condition)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal dependency condition: %w", err)
	}
	id := dep.DependencyID
	condition := string(b)
	return &id, &condition, nil
}

// DecodeDependency собирает FieldDependency из колонок relation.
func DecodeDependency(questionID string, dependencyID, naturalKey, condition *string) (*domain.FieldDependency, error) {
	if dependencyID == nil || *dependencyID == "" {
		return nil, nil
	}

	dep := &domain.FieldDependency{
		QuestionID:   questionID,
		DependencyID: *dependencyID,
	}
	if naturalKey != nil {
		dep.DependencyNaturalKey = *naturalKey
	}
	if condition != nil && *condition != "" {
		if err := json.Unmarshal([]byte(*condition), &dep.Condition); err != nil {
			return nil, fmt.Errorf("unmarshal dependency condition: %w", err)
		}
	}
	return dep, nil
}

// AssembleSteps раскладывает relations по топикам в порядке топиков.
// Relations должны быть уже отсортированы по sort_order.
func AssembleSteps(topics []domain.Topic, relations []domain.QuestionTemplateRelation) []domain.TemplateStep {
	steps := make([]domain.TemplateStep, len(topics))
	index := make(map[uuid.UUID]int, len(topics))
	for i, topic := range topics {
		steps[i] = domain.TemplateStep{
			Topic:  topic,
			Fields: make([]domain.QuestionTemplateRelation, 0),
		}
		index[topic.ID] = i
	}

	for _, rel := range relations {
		if i, ok := index[rel.TopicID]; ok {
			steps[i].Fields = append(steps[i].Fields, rel)
		}
	}
	return steps
}
