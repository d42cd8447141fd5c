package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/domain"
)

// Create сохраняет анкету. ErrNotFound, если шаблона нет.
func (s *Store) Create(ctx context.Context, q *domain.Questionary) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO questionaries (questionary_id, template_id, creator_id, parent_questionary_id, created_at)
		SELECT ?, template_id, ?, ?, ?
		FROM templates
		WHERE template_id = ?
	`, q.ID, q.CreatorID, q.ParentID, toMillis(q.CreatedAt), q.TemplateID)
	if err != nil {
		return fmt.Errorf("insert questionary: %w", mapError(err))
	}
	return requireAffected(result)
}

// GetQuestionary возвращает анкету по ID.
func (s *Store) GetQuestionary(ctx context.Context, id uuid.UUID) (*domain.Questionary, error) {
	return getQuestionary(ctx, s.db, id)
}

func getQuestionary(ctx context.Context, q querier, id uuid.UUID) (*domain.Questionary, error) {
	row := q.QueryRowContext(ctx, `
		SELECT questionary_id, template_id, creator_id, parent_questionary_id, created_at
		FROM questionaries
		WHERE questionary_id = ?
	`, id)

	questionary, err := scanQuestionary(row)
	if err != nil {
		return nil, fmt.Errorf("get questionary: %w", mapError(err))
	}
	return questionary, nil
}

// GetQuestionarySteps собирает шаги анкеты.
func (s *Store) GetQuestionarySteps(ctx context.Context, id uuid.UUID) ([]domain.QuestionaryStep, error) {
	questionary, err := s.GetQuestionary(ctx, id)
	if err != nil {
		return nil, err
	}

	steps, err := getTemplateSteps(ctx, s.db, questionary.TemplateID)
	if err != nil {
		return nil, err
	}

	answers, err := s.answers(ctx, id)
	if err != nil {
		return nil, err
	}

	complete, err := s.completeness(ctx, id)
	if err != nil {
		return nil, err
	}

	return domain.BuildSteps(steps, answers, complete), nil
}

// GetBlankQuestionarySteps возвращает шаги шаблона без ответов.
func (s *Store) GetBlankQuestionarySteps(ctx context.Context, templateID uuid.UUID) ([]domain.QuestionaryStep, error) {
	steps, err := getTemplateSteps(ctx, s.db, templateID)
	if err != nil {
		return nil, err
	}
	return domain.BlankSteps(steps), nil
}

// GetParentQuestionary возвращает родителя анкеты или nil.
func (s *Store) GetParentQuestionary(ctx context.Context, childID uuid.UUID) (*domain.Questionary, error) {
	child, err := s.GetQuestionary(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child.ParentID == nil {
		return nil, nil
	}

	parent, err := s.GetQuestionary(ctx, *child.ParentID)
	if err != nil {
		return nil, err
	}
	return parent, nil
}

// UpdateAnswer записывает ответ, если вопрос подключён к шаблону анкеты.
func (s *Store) UpdateAnswer(ctx context.Context, answer *domain.Answer) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (questionary_id, question_id, answer, updated_at)
		SELECT q.questionary_id, r.question_id, ?, ?
		FROM questionaries q
		JOIN templates_has_questions r ON r.template_id = q.template_id
		WHERE q.questionary_id = ? AND r.question_id = ?
		ON CONFLICT (questionary_id, question_id) DO UPDATE SET
			answer = excluded.answer,
			updated_at = excluded.updated_at
	`, answer.Value, toMillis(answer.UpdatedAt), answer.QuestionaryID, answer.QuestionID)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", mapError(err))
	}
	return requireAffected(result)
}

// UpdateTopicCompleteness записывает флаг, если топик принадлежит шаблону анкеты.
func (s *Store) UpdateTopicCompleteness(ctx context.Context, tc *domain.TopicCompleteness) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO topic_completenesses (questionary_id, topic_id, is_complete)
		SELECT q.questionary_id, t.topic_id, ?
		FROM questionaries q
		JOIN topics t ON t.template_id = q.template_id
		WHERE q.questionary_id = ? AND t.topic_id = ?
		ON CONFLICT (questionary_id, topic_id) DO UPDATE SET
			is_complete = excluded.is_complete
	`, tc.IsComplete, tc.QuestionaryID, tc.TopicID)
	if err != nil {
		return fmt.Errorf("upsert topic completeness: %w", mapError(err))
	}
	return requireAffected(result)
}

// Delete удаляет анкету (ответы и флаги удаляются каскадно).
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (*domain.Questionary, error) {
	var deleted *domain.Questionary
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		q, err := getQuestionary(ctx, tx, id)
		if err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM questionaries WHERE questionary_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete questionary: %w", mapError(err))
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		deleted = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Clone копирует анкету вместе с ответами и флагами заполненности.
func (s *Store) Clone(ctx context.Context, sourceID uuid.UUID, clone *domain.Questionary) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		source, err := getQuestionary(ctx, tx, sourceID)
		if err != nil {
			return err
		}
		clone.TemplateID = source.TemplateID

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO questionaries (questionary_id, template_id, creator_id, parent_questionary_id, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, clone.ID, clone.TemplateID, clone.CreatorID, sourceID, toMillis(clone.CreatedAt)); err != nil {
			return fmt.Errorf("insert clone: %w", mapError(err))
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO answers (questionary_id, question_id, answer, updated_at)
			SELECT ?, question_id, answer, ?
			FROM answers
			WHERE questionary_id = ?
		`, clone.ID, toMillis(clone.CreatedAt), sourceID); err != nil {
			return fmt.Errorf("copy answers: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO topic_completenesses (questionary_id, topic_id, is_complete)
			SELECT ?, topic_id, is_complete
			FROM topic_completenesses
			WHERE questionary_id = ?
		`, clone.ID, sourceID); err != nil {
			return fmt.Errorf("copy topic completeness: %w", err)
		}
		return nil
	})
}

// DeleteStaleQuestionaries удаляет пустые черновики: созданные до before,
// без ответов и без дочерних анкет. Возвращает количество удалённых.
func (s *Store) DeleteStaleQuestionaries(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM questionaries
		WHERE created_at < ?
		  AND NOT EXISTS (SELECT 1 FROM answers a WHERE a.questionary_id = questionaries.questionary_id)
		  AND NOT EXISTS (SELECT 1 FROM questionaries c WHERE c.parent_questionary_id = questionaries.questionary_id)
	`, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("delete stale questionaries: %w", err)
	}
	return result.RowsAffected()
}

func (s *Store) answers(ctx context.Context, questionaryID uuid.UUID) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, answer FROM answers WHERE questionary_id = ?
	`, questionaryID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	answers := make(map[string]string)
	for rows.Next() {
		var questionID, value string
		if err := rows.Scan(&questionID, &value); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers[questionID] = value
	}
	return answers, rows.Err()
}

func (s *Store) completeness(ctx context.Context, questionaryID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic_id, is_complete FROM topic_completenesses WHERE questionary_id = ?
	`, questionaryID)
	if err != nil {
		return nil, fmt.Errorf("list topic completeness: %w", err)
	}
	defer rows.Close()

	complete := make(map[uuid.UUID]bool)
	for rows.Next() {
		var (
			topicID    uuid.UUID
			isComplete bool
		)
		if err := rows.Scan(&topicID, &isComplete); err != nil {
			return nil, fmt.Errorf("scan topic completeness: %w", err)
		}
		complete[topicID] = isComplete
	}
	return complete, rows.Err()
}

func scanQuestionary(row scanner) (*domain.Questionary, error) {
	var (
		q         domain.Questionary
		createdAt int64
	)
	if err := row.Scan(&q.ID, &q.TemplateID, &q.CreatorID, &q.ParentID, &createdAt); err != nil {
		return nil, err
	}
	q.CreatedAt = fromMillis(createdAt)
	return &q, nil
}
