package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/Questionary/internal/domain"
	"github.com/shaiso/Questionary/internal/fieldconfig"
	"github.com/shaiso/Questionary/internal/repo"
)

// --- Templates ---

// CreateTemplate создаёт шаблон.
func (s *Store) CreateTemplate(ctx context.Context, t *domain.Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (template_id, category_id, name, description, is_archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.CategoryID.String(), t.Name, t.Description, t.IsArchived, toMillis(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert template: %w", mapError(err))
	}
	return nil
}

// GetTemplate возвращает шаблон без шагов.
func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	return getTemplate(ctx, s.db, id)
}

func getTemplate(ctx context.Context, q querier, id uuid.UUID) (*domain.Template, error) {
	row := q.QueryRowContext(ctx, `
		SELECT template_id, category_id, name, description, is_archived, created_at
		FROM templates
		WHERE template_id = ?
	`, id)

	t, err := scanTemplate(row)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", mapError(err))
	}
	return t, nil
}

// ListTemplates возвращает шаблоны по фильтру, новые первыми.
func (s *Store) ListTemplates(ctx context.Context, filter domain.TemplateFilter) ([]domain.Template, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Category != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, filter.Category.String())
	}
	if filter.Archived != nil {
		conditions = append(conditions, "is_archived = ?")
		args = append(args, *filter.Archived)
	}

	query := `SELECT template_id, category_id, name, description, is_archived, created_at FROM templates`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]domain.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// UpdateTemplate обновляет метаданные шаблона.
func (s *Store) UpdateTemplate(ctx context.Context, t *domain.Template) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE templates
		SET name = ?, description = ?, is_archived = ?
		WHERE template_id = ?
	`, t.Name, t.Description, t.IsArchived, t.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", mapError(err))
	}
	return requireAffected(result)
}

// DeleteTemplate удаляет шаблон с топиками и relations.
// ErrInvalidState, если по шаблону созданы анкеты.
func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	var deleted *domain.Template
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTemplate(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE template_id = ?`, id); err != nil {
			return fmt.Errorf("delete template: %w", mapError(err))
		}
		deleted = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// GetTemplateSteps возвращает топики шаблона с подключёнными вопросами.
func (s *Store) GetTemplateSteps(ctx context.Context, templateID uuid.UUID) ([]domain.TemplateStep, error) {
	return getTemplateSteps(ctx, s.db, templateID)
}

func getTemplateSteps(ctx context.Context, q querier, templateID uuid.UUID) ([]domain.TemplateStep, error) {
	if _, err := getTemplate(ctx, q, templateID); err != nil {
		return nil, err
	}

	topics, err := listTopics(ctx, q, templateID)
	if err != nil {
		return nil, err
	}

	relations, err := listRelations(ctx, q, templateID)
	if err != nil {
		return nil, err
	}

	return repo.AssembleSteps(topics, relations), nil
}

// --- Topics ---

// CreateTopic вставляет топик на позицию SortOrder, сдвигая последующие.
func (s *Store) CreateTopic(ctx context.Context, topic *domain.Topic) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTemplate(ctx, tx, topic.TemplateID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE topics SET sort_order = sort_order + 1
			WHERE template_id = ? AND sort_order >= ?
		`, topic.TemplateID, topic.SortOrder); err != nil {
			return fmt.Errorf("shift topics: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO topics (topic_id, template_id, topic_title, sort_order, is_enabled)
			VALUES (?, ?, ?, ?, ?)
		`, topic.ID, topic.TemplateID, topic.Title, topic.SortOrder, topic.IsEnabled); err != nil {
			return fmt.Errorf("insert topic: %w", mapError(err))
		}
		return nil
	})
}

// GetTopic возвращает топик по ID.
func (s *Store) GetTopic(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	var topic domain.Topic
	err := s.db.QueryRowContext(ctx, `
		SELECT topic_id, template_id, topic_title, sort_order, is_enabled
		FROM topics
		WHERE topic_id = ?
	`, id).Scan(&topic.ID, &topic.TemplateID, &topic.Title, &topic.SortOrder, &topic.IsEnabled)
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", mapError(err))
	}
	return &topic, nil
}

// UpdateTopic обновляет заголовок, порядок и флаг топика.
func (s *Store) UpdateTopic(ctx context.Context, topic *domain.Topic) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE topics
		SET topic_title = ?, sort_order = ?, is_enabled = ?
		WHERE topic_id = ?
	`, topic.Title, topic.SortOrder, topic.IsEnabled, topic.ID)
	if err != nil {
		return fmt.Errorf("update topic: %w", mapError(err))
	}
	return requireAffected(result)
}

// DeleteTopic удаляет топик вместе с его relations.
// ErrInvalidState, если от удаляемых полей зависят поля других топиков.
func (s *Store) DeleteTopic(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	topic, err := s.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM topics WHERE topic_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("delete topic: %w", mapError(err))
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}
	return topic, nil
}

// UpdateTopicOrder выставляет sort_order по позиции в ids.
func (s *Store) UpdateTopicOrder(ctx context.Context, ids []uuid.UUID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i, id := range ids {
			result, err := tx.ExecContext(ctx, `UPDATE topics SET sort_order = ? WHERE topic_id = ?`, i, id)
			if err != nil {
				return fmt.Errorf("update topic order: %w", err)
			}
			if err := requireAffected(result); err != nil {
				return err
			}
		}
		return nil
	})
}

func listTopics(ctx context.Context, q querier, templateID uuid.UUID) ([]domain.Topic, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT topic_id, template_id, topic_title, sort_order, is_enabled
		FROM topics
		WHERE template_id = ?
		ORDER BY sort_order, topic_title
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var topics []domain.Topic
	for rows.Next() {
		var topic domain.Topic
		if err := rows.Scan(&topic.ID, &topic.TemplateID, &topic.Title, &topic.SortOrder, &topic.IsEnabled); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// --- Questions ---

// CreateQuestion создаёт вопрос.
func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	cfg, err := repo.EncodeConfig(q.Config)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO questions (question_id, category_id, natural_key, data_type, question, default_config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.CategoryID.String(), q.NaturalKey, q.DataType.String(), q.Question, cfg,
		toMillis(q.CreatedAt), toMillis(q.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert question: %w", mapError(err))
	}
	return nil
}

// GetQuestion возвращает вопрос по ID.
func (s *Store) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	var (
		q                    domain.Question
		category, dataType   string
		cfg                  string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT question_id, category_id, natural_key, data_type, question, default_config, created_at, updated_at
		FROM questions
		WHERE question_id = ?
	`, id).Scan(&q.ID, &category, &q.NaturalKey, &dataType, &q.Question, &cfg, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", mapError(err))
	}

	q.CategoryID = domain.ParseTemplateCategory(category)
	q.DataType = fieldconfig.DataType(dataType)
	q.CreatedAt = fromMillis(createdAt)
	q.UpdatedAt = fromMillis(updatedAt)
	if q.Config, err = repo.DecodeConfig(q.DataType, cfg); err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuestion обновляет natural key, текст и конфигурацию по умолчанию.
func (s *Store) UpdateQuestion(ctx context.Context, q *domain.Question) error {
	cfg, err := repo.EncodeConfig(q.Config)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE questions
		SET natural_key = ?, question = ?, default_config = ?, updated_at = ?
		WHERE question_id = ?
	`, q.NaturalKey, q.Question, cfg, toMillis(q.UpdatedAt), q.ID)
	if err != nil {
		return fmt.Errorf("update question: %w", mapError(err))
	}
	return requireAffected(result)
}

// DeleteQuestion удаляет вопрос, его relations и ответы на него.
// ErrInvalidState, если от вопроса зависят другие поля.
func (s *Store) DeleteQuestion(ctx context.Context, id string) (*domain.Question, error) {
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE question_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("delete question: %w", mapError(err))
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}
	return q, nil
}

// --- Question relations ---

// UpsertQuestionRel подключает вопрос к шаблону или обновляет relation.
func (s *Store) UpsertQuestionRel(ctx context.Context, rel *domain.QuestionTemplateRelation) error {
	cfg, err := repo.EncodeConfig(rel.Config)
	if err != nil {
		return err
	}
	depID, depCondition, err := repo.EncodeDependency(rel.Dependency)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates_has_questions (
			template_id, question_id, topic_id, sort_order, config,
			dependency_question_id, dependency_condition
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (template_id, question_id) DO UPDATE SET
			topic_id = excluded.topic_id,
			sort_order = excluded.sort_order,
			config = excluded.config,
			dependency_question_id = excluded.dependency_question_id,
			dependency_condition = excluded.dependency_condition
	`, rel.TemplateID, rel.Question.ID, rel.TopicID, rel.SortOrder, cfg, depID, depCondition)
	if err != nil {
		return fmt.Errorf("upsert question rel: %w", mapError(err))
	}
	return nil
}

// DeleteQuestionRel отключает вопрос от шаблона.
func (s *Store) DeleteQuestionRel(ctx context.Context, templateID uuid.UUID, questionID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM templates_has_questions
		WHERE template_id = ? AND question_id = ?
	`, templateID, questionID)
	if err != nil {
		return fmt.Errorf("delete question rel: %w", mapError(err))
	}
	return requireAffected(result)
}

// MoveQuestionRels переносит вопросы шаблона в топик topicID
// и выставляет sort_order 1..n по позиции в questionIDs.
func (s *Store) MoveQuestionRels(ctx context.Context, templateID, topicID uuid.UUID, questionIDs []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i, questionID := range questionIDs {
			result, err := tx.ExecContext(ctx, `
				UPDATE templates_has_questions
				SET topic_id = ?, sort_order = ?
				WHERE template_id = ? AND question_id = ?
			`, topicID, i+1, templateID, questionID)
			if err != nil {
				return fmt.Errorf("move question rel: %w", mapError(err))
			}
			if err := requireAffected(result); err != nil {
				return err
			}
		}
		return nil
	})
}

func listRelations(ctx context.Context, q querier, templateID uuid.UUID) ([]domain.QuestionTemplateRelation, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT
			r.template_id, r.topic_id, r.sort_order, r.config,
			r.dependency_question_id, r.dependency_condition, dq.natural_key,
			q.question_id, q.category_id, q.natural_key, q.data_type, q.question,
			q.default_config, q.created_at, q.updated_at
		FROM templates_has_questions r
		JOIN questions q ON q.question_id = r.question_id
		LEFT JOIN questions dq ON dq.question_id = r.dependency_question_id
		WHERE r.template_id = ?
		ORDER BY r.sort_order, q.question_id
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list question rels: %w", err)
	}
	defer rows.Close()

	var relations []domain.QuestionTemplateRelation
	for rows.Next() {
		var (
			rel                         domain.QuestionTemplateRelation
			relConfig, defaultConfig    string
			depID, depCondition, depKey *string
			category, dataType          string
			createdAt, updatedAt        int64
		)
		if err := rows.Scan(
			&rel.TemplateID, &rel.TopicID, &rel.SortOrder, &relConfig,
			&depID, &depCondition, &depKey,
			&rel.Question.ID, &category, &rel.Question.NaturalKey, &dataType, &rel.Question.Question,
			&defaultConfig, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan question rel: %w", err)
		}

		rel.Question.CategoryID = domain.ParseTemplateCategory(category)
		rel.Question.DataType = fieldconfig.DataType(dataType)
		rel.Question.CreatedAt = fromMillis(createdAt)
		rel.Question.UpdatedAt = fromMillis(updatedAt)

		if rel.Question.Config, err = repo.DecodeConfig(rel.Question.DataType, defaultConfig); err != nil {
			return nil, err
		}
		if rel.Config, err = repo.DecodeConfig(rel.Question.DataType, relConfig); err != nil {
			return nil, err
		}
		if rel.Dependency, err = repo.DecodeDependency(rel.Question.ID, depID, depKey, depCondition); err != nil {
			return nil, err
		}

		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

// scanner — общий интерфейс *sql.Row и *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*domain.Template, error) {
	var (
		t         domain.Template
		category  string
		createdAt int64
	)
	if err := row.Scan(&t.ID, &category, &t.Name, &t.Description, &t.IsArchived, &createdAt); err != nil {
		return nil, err
	}
	t.CategoryID = domain.ParseTemplateCategory(category)
	t.CreatedAt = fromMillis(createdAt)
	return &t, nil
}
