package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shaiso/Questionary/internal/fieldconfig"
)

// UnmarshalJSON декодирует Config по DataType вопроса.
func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	var raw struct {
		plain
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	cfg, err := fieldconfig.DecodeJSON(raw.DataType, raw.Config)
	if err != nil {
		return fmt.Errorf("question %s: %w", raw.ID, err)
	}

	*q = Question(raw.plain)
	q.Config = cfg
	return nil
}

// UnmarshalJSON декодирует Config relation по DataType вложенного вопроса.
func (r *QuestionTemplateRelation) UnmarshalJSON(data []byte) error {
	type plain QuestionTemplateRelation
	var raw struct {
		plain
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	cfg, err := fieldconfig.DecodeJSON(raw.Question.DataType, raw.Config)
	if err != nil {
		return fmt.Errorf("question %s: %w", raw.Question.ID, err)
	}

	*r = QuestionTemplateRelation(raw.plain)
	r.Config = cfg
	return nil
}

// UnmarshalJSON нужен, потому что UnmarshalJSON встроенной relation
// иначе поглощает value и is_visible.
func (f *QuestionaryField) UnmarshalJSON(data []byte) error {
	var rel QuestionTemplateRelation
	if err := json.Unmarshal(data, &rel); err != nil {
		return err
	}

	var answer struct {
		Value     string `json:"value"`
		IsVisible bool   `json:"is_visible"`
	}
	if err := json.Unmarshal(data, &answer); err != nil {
		return err
	}

	*f = QuestionaryField{
		QuestionTemplateRelation: rel,
		Value:                    answer.Value,
		IsVisible:                answer.IsVisible,
	}
	return nil
}
