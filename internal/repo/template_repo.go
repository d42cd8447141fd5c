package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Questionary/internal/domain"
	"github.com/shaiso/Questionary/internal/fieldconfig"
)

// TemplateRepo — репозиторий каталога: templates, topics, questions
// и templates_has_questions.
type TemplateRepo struct {
	pool *pgxpool.Pool
}

// NewTemplateRepo создаёт новый TemplateRepo.
func NewTemplateRepo(pool *pgxpool.Pool) *TemplateRepo {
	return &TemplateRepo{pool: pool}
}

// --- Templates ---

// CreateTemplate создаёт шаблон.
func (r *TemplateRepo) CreateTemplate(ctx context.Context, t *domain.Template) error {
	query := `
		INSERT INTO templates (template_id, category_id, name, description, is_archived, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		t.ID,
		t.CategoryID.String(),
		t.Name,
		t.Description,
		t.IsArchived,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", mapError(err))
	}
	return nil
}

// GetTemplate возвращает шаблон без шагов.
func (r *TemplateRepo) GetTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	return getTemplate(ctx, r.pool, id)
}

func getTemplate(ctx context.Context, db dbtx, id uuid.UUID) (*domain.Template, error) {
	query := `
		SELECT template_id, category_id, name, description, is_archived, created_at
		FROM templates
		WHERE template_id = $1
	`
	t, err := scanTemplate(db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get template: %w", mapError(err))
	}
	return t, nil
}

// ListTemplates возвращает шаблоны по фильтру, новые первыми.
func (r *TemplateRepo) ListTemplates(ctx context.Context, filter domain.TemplateFilter) ([]domain.Template, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Category != nil {
		args = append(args, filter.Category.String())
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		conditions = append(conditions, fmt.Sprintf("is_archived = $%d", len(args)))
	}

	query := `SELECT template_id, category_id, name, description, is_archived, created_at FROM templates`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, name"

	rows, err := r.pool.Query(ctx, query, args...)
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
func (r *TemplateRepo) UpdateTemplate(ctx context.Context, t *domain.Template) error {
	query := `
		UPDATE templates
		SET name = $2, description = $3, is_archived = $4
		WHERE template_id = $1
	`
	result, err := r.pool.Exec(ctx, query, t.ID, t.Name, t.Description, t.IsArchived)
	if err != nil {
		return fmt.Errorf("update template: %w", mapError(err))
	}
	return requireAffected(result)
}

// DeleteTemplate удаляет шаблон с топиками и relations.
// ErrInvalidState, если по шаблону созданы анкеты.
func (r *TemplateRepo) DeleteTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	var deleted *domain.Template
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		t, err := getTemplate(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM templates WHERE template_id = $1`, id); err != nil {
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
func (r *TemplateRepo) GetTemplateSteps(ctx context.Context, templateID uuid.UUID) ([]domain.TemplateStep, error) {
	return getTemplateSteps(ctx, r.pool, templateID)
}

func getTemplateSteps(ctx context.Context, db dbtx, templateID uuid.UUID) ([]domain.TemplateStep, error) {
	if _, err := getTemplate(ctx, db, templateID); err != nil {
		return nil, err
	}

	topics, err := listTopics(ctx, db, templateID)
	if err != nil {
		return nil, err
	}

	relations, err := listRelations(ctx, db, templateID)
	if err != nil {
		return nil, err
	}

	return AssembleSteps(topics, relations), nil
}

// --- Topics ---

// CreateTopic вставляет топик на позицию SortOrder, сдвигая последующие.
func (r *TemplateRepo) CreateTopic(ctx context.Context, topic *domain.Topic) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := getTemplate(ctx, tx, topic.TemplateID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE topics SET sort_order = sort_order + 1
			WHERE template_id = $1 AND sort_order >= $2
		`, topic.TemplateID, topic.SortOrder); err != nil {
			return fmt.Errorf("shift topics: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO topics (topic_id, template_id, topic_title, sort_order, is_enabled)
			VALUES ($1, $2, $3, $4, $5)
		`, topic.ID, topic.TemplateID, topic.Title, topic.SortOrder, topic.IsEnabled); err != nil {
			return fmt.Errorf("insert topic: %w", mapError(err))
		}
		return nil
	})
}

// GetTopic возвращает топик по ID.
func (r *TemplateRepo) GetTopic(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	query := `
		SELECT topic_id, template_id, topic_title, sort_order, is_enabled
		FROM topics
		WHERE topic_id = $1
	`
	var topic domain.Topic
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&topic.ID,
		&topic.TemplateID,
		&topic.Title,
		&topic.SortOrder,
		&topic.IsEnabled,
	)
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", mapError(err))
	}
	return &topic, nil
}

// UpdateTopic обновляет заголовок, порядок и флаг топика.
func (r *TemplateRepo) UpdateTopic(ctx context.Context, topic *domain.Topic) error {
	query := `
		UPDATE topics
		SET topic_title = $2, sort_order = $3, is_enabled = $4
		WHERE topic_id = $1
	`
	result, err := r.pool.Exec(ctx, query, topic.ID, topic.Title, topic.SortOrder, topic.IsEnabled)
	if err != nil {
		return fmt.Errorf("update topic: %w", mapError(err))
	}
	return requireAffected(result)
}

// DeleteTopic удаляет топик вместе с его relations.
// ErrInvalidState, если от удаляемых полей зависят поля других топиков.
func (r *TemplateRepo) DeleteTopic(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	topic, err := r.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM topics WHERE topic_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete topic: %w", mapError(err))
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}
	return topic, nil
}

// UpdateTopicOrder выставляет sort_order по позиции в ids.
func (r *TemplateRepo) UpdateTopicOrder(ctx context.Context, ids []uuid.UUID) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		for i, id := range ids {
			result, err := tx.Exec(ctx, `UPDATE topics SET sort_order = $1 WHERE topic_id = $2`, i, id)
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

func listTopics(ctx context.Context, db dbtx, templateID uuid.UUID) ([]domain.Topic, error) {
	rows, err := db.Query(ctx, `
		SELECT topic_id, template_id, topic_title, sort_order, is_enabled
		FROM topics
		WHERE template_id = $1
		ORDER BY sort_order, topic_title
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var topics []domain.Topic
	for rows.Next() {
		var topic domain.Topic
		if err := rows.Scan(
			&topic.ID,
			&topic.TemplateID,
			&topic.Title,
			&topic.SortOrder,
			&topic.IsEnabled,
		); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// --- Questions ---

// CreateQuestion создаёт вопрос.
func (r *TemplateRepo) CreateQuestion(ctx context.Context, q *domain.Question) error {
	cfg, err := EncodeConfig(q.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO questions (question_id, category_id, natural_key, data_type, question, default_config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		q.ID,
		q.CategoryID.String(),
		q.NaturalKey,
		q.DataType.String(),
		q.Question,
		cfg,
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert question: %w", mapError(err))
	}
	return nil
}

// GetQuestion возвращает вопрос по ID.
func (r *TemplateRepo) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	query := `
		SELECT question_id, category_id, natural_key, data_type, question, default_config, created_at, updated_at
		FROM questions
		WHERE question_id = $1
	`
	var (
		q                  domain.Question
		category, dataType string
		cfg                string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID,
		&category,
		&q.NaturalKey,
		&dataType,
		&q.Question,
		&cfg,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", mapError(err))
	}

	q.CategoryID = domain.ParseTemplateCategory(category)
	q.DataType = fieldconfig.DataType(dataType)
	if q.Config, err = DecodeConfig(q.DataType, cfg); err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuestion обновляет natural key, текст и конфигурацию по умолчанию.
func (r *TemplateRepo) UpdateQuestion(ctx context.Context, q *domain.Question) error {
	cfg, err := EncodeConfig(q.Config)
	if err != nil {
		return err
	}

	query := `
		UPDATE questions
		SET natural_key = $2, question = $3, default_config = $4, updated_at = $5
		WHERE question_id = $1
	`
	result, err := r.pool.Exec(ctx, query, q.ID, q.NaturalKey, q.Question, cfg, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update question: %w", mapError(err))
	}
	return requireAffected(result)
}

// DeleteQuestion удаляет вопрос, его relations и ответы на него.
// ErrInvalidState, если от вопроса зависят другие поля.
func (r *TemplateRepo) DeleteQuestion(ctx context.Context, id string) (*domain.Question, error) {
	q, err := r.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE question_id = $1`, id)
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
func (r *TemplateRepo) UpsertQuestionRel(ctx context.Context, rel *domain.QuestionTemplateRelation) error {
	cfg, err := EncodeConfig(rel.Config)
	if err != nil {
		return err
	}
	depID, depCondition, err := EncodeDependency(rel.Dependency)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO templates_has_questions (
			template_id, question_id, topic_id, sort_order, config,
			dependency_question_id, dependency_condition
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (template_id, question_id) DO UPDATE SET
			topic_id = EXCLUDED.topic_id,
			sort_order = EXCLUDED.sort_order,
			config = EXCLUDED.config,
			dependency_question_id = EXCLUDED.dependency_question_id,
			dependency_condition = EXCLUDED.dependency_condition
	`
	_, err = r.pool.Exec(ctx, query,
		rel.TemplateID,
		rel.Question.ID,
		rel.TopicID,
		rel.SortOrder,
		cfg,
		depID,
		depCondition,
	)
	if err != nil {
		return fmt.Errorf("upsert question rel: %w", mapError(err))
	}
	return nil
}

// DeleteQuestionRel отключает вопрос от шаблона.
func (r *TemplateRepo) DeleteQuestionRel(ctx context.Context, templateID uuid.UUID, questionID string) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM templates_has_questions
		WHERE template_id = $1 AND question_id = $2
	`, templateID, questionID)
	if err != nil {
		return fmt.Errorf("delete question rel: %w", mapError(err))
	}
	return requireAffected(result)
}

// MoveQuestionRels переносит вопросы шаблона в топик topicID
// и выставляет sort_order 1..n по позиции в questionIDs.
func (r *TemplateRepo) MoveQuestionRels(ctx context.Context, templateID, topicID uuid.UUID, questionIDs []string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		for i, questionID := range questionIDs {
			result, err := tx.Exec(ctx, `
				UPDATE templates_has_questions
				SET topic_id = $1, sort_order = $2
				WHERE template_id = $3 AND question_id = $4
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

func listRelations(ctx context.Context, db dbtx, templateID uuid.UUID) ([]domain.QuestionTemplateRelation, error) {
	rows, err := db.Query(ctx, `
		SELECT
			r.template_id, r.topic_id, r.sort_order, r.config::text,
			r.dependency_question_id, r.dependency_condition::text, dq.natural_key,
			q.question_id, q.category_id, q.natural_key, q.data_type, q.question,
			q.default_config::text, q.created_at, q.updated_at
		FROM templates_has_questions r
		JOIN questions q ON q.question_id = r.question_id
		LEFT JOIN questions dq ON dq.question_id = r.dependency_question_id
		WHERE r.template_id = $1
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
		)
		if err := rows.Scan(
			&rel.TemplateID, &rel.TopicID, &rel.SortOrder, &relConfig,
			&depID, &depCondition, &depKey,
			&rel.Question.ID, &category, &rel.Question.NaturalKey, &dataType, &rel.Question.Question,
			&defaultConfig, &rel.Question.CreatedAt, &rel.Question.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan question rel: %w", err)
		}

		rel.Question.CategoryID = domain.ParseTemplateCategory(category)
		rel.Question.DataType = fieldconfig.DataType(dataType)

		if rel.Question.Config, err = DecodeConfig(rel.Question.DataType, defaultConfig); err != nil {
			return nil, err
		}
		if rel.Config, err = DecodeConfig(rel.Question.DataType, relConfig); err != nil {
			return nil, err
		}
		if rel.Dependency, err = DecodeDependency(rel.Question.ID, depID, depKey, depCondition); err != nil {
			return nil, err
		}

		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

func scanTemplate(row pgx.Row) (*domain.Template, error) {
	var (
		t        domain.Template
		category string
	)
	if err := row.Scan(
		&t.ID,
		&category,
		&t.Name,
		&t.Description,
		&t.IsArchived,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	t.CategoryID = domain.ParseTemplateCategory(category)
	return &t, nil
}
