package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Questionary/internal/domain"
)

// QuestionaryRepo — репозиторий анкет, ответов и флагов заполненности.
type QuestionaryRepo struct {
	pool *pgxpool.Pool
}

// NewQuestionaryRepo создаёт новый QuestionaryRepo.
func NewQuestionaryRepo(pool *pgxpool.Pool) *QuestionaryRepo {
	return &QuestionaryRepo{pool: pool}
}

// Create сохраняет анкету. ErrNotFound, если шаблона нет.
func (r *QuestionaryRepo) Create(ctx context.Context, q *domain.Questionary) error {
	query := `
		INSERT INTO questionaries (questionary_id, template_id, creator_id, parent_questionary_id, created_at)
		SELECT $1::uuid, template_id, $2::bigint, $3::uuid, $4::timestamptz
		FROM templates
		WHERE template_id = $5
	`
	result, err := r.pool.Exec(ctx, query,
		q.ID,
		q.CreatorID,
		q.ParentID,
		q.CreatedAt,
		q.TemplateID,
	)
	if err != nil {
		return fmt.Errorf("insert questionary: %w", mapError(err))
	}
	return requireAffected(result)
}

// GetQuestionary возвращает анкету по ID.
func (r *QuestionaryRepo) GetQuestionary(ctx context.Context, id uuid.UUID) (*domain.Questionary, error) {
	return getQuestionary(ctx, r.pool, id)
}

func getQuestionary(ctx context.Context, db dbtx, id uuid.UUID) (*domain.Questionary, error) {
	query := `
		SELECT questionary_id, template_id, creator_id, parent_questionary_id, created_at
		FROM questionaries
		WHERE questionary_id = $1
	`
	var q domain.Questionary
	err := db.QueryRow(ctx, query, id).Scan(
		&q.ID,
		&q.TemplateID,
		&q.CreatorID,
		&q.ParentID,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get questionary: %w", mapError(err))
	}
	return &q, nil
}

// GetQuestionarySteps собирает шаги анкеты.
func (r *QuestionaryRepo) GetQuestionarySteps(ctx context.Context, id uuid.UUID) ([]domain.QuestionaryStep, error) {
	questionary, err := r.GetQuestionary(ctx, id)
	if err != nil {
		return nil, err
	}

	steps, err := getTemplateSteps(ctx, r.pool, questionary.TemplateID)
	if err != nil {
		return nil, err
	}

	answers, err := r.answers(ctx, id)
	if err != nil {
		return nil, err
	}

	complete, err := r.completeness(ctx, id)
	if err != nil {
		return nil, err
	}

	return domain.BuildSteps(steps, answers, complete), nil
}

// GetBlankQuestionarySteps возвращает шаги шаблона без ответов.
func (r *QuestionaryRepo) GetBlankQuestionarySteps(ctx context.Context, templateID uuid.UUID) ([]domain.QuestionaryStep, error) {
	steps, err := getTemplateSteps(ctx, r.pool, templateID)
	if err != nil {
		return nil, err
	}
	return domain.BlankSteps(steps), nil
}

// GetParentQuestionary возвращает родителя анкеты или nil.
func (r *QuestionaryRepo) GetParentQuestionary(ctx context.Context, childID uuid.UUID) (*domain.Questionary, error) {
	child, err := r.GetQuestionary(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child.ParentID == nil {
		return nil, nil
	}
	return r.GetQuestionary(ctx, *child.ParentID)
}

// UpdateAnswer записывает ответ, если вопрос подключён к шаблону анкеты.
func (r *QuestionaryRepo) UpdateAnswer(ctx context.Context, answer *domain.Answer) error {
	query := `
		INSERT INTO answers (questionary_id, question_id, answer, updated_at)
		SELECT q.questionary_id, rel.question_id, $1::text, $2::timestamptz
		FROM questionaries q
		JOIN templates_has_questions rel ON rel.template_id = q.template_id
		WHERE q.questionary_id = $3 AND rel.question_id = $4
		ON CONFLICT (questionary_id, question_id) DO UPDATE SET
			answer = EXCLUDED.answer,
			updated_at = EXCLUDED.updated_at
	`
	result, err := r.pool.Exec(ctx, query,
		answer.Value,
		answer.UpdatedAt,
		answer.QuestionaryID,
		answer.QuestionID,
	)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", mapError(err))
	}
	return requireAffected(result)
}

// UpdateTopicCompleteness записывает флаг, если топик принадлежит шаблону анкеты.
func (r *QuestionaryRepo) UpdateTopicCompleteness(ctx context.Context, tc *domain.TopicCompleteness) error {
	query := `
		INSERT INTO topic_completenesses (questionary_id, topic_id, is_complete)
		SELECT q.questionary_id, t.topic_id, $1::boolean
		FROM questionaries q
		JOIN topics t ON t.template_id = q.template_id
		WHERE q.questionary_id = $2 AND t.topic_id = $3
		ON CONFLICT (questionary_id, topic_id) DO UPDATE SET
			is_complete = EXCLUDED.is_complete
	`
	result, err := r.pool.Exec(ctx, query, tc.IsComplete, tc.QuestionaryID, tc.TopicID)
	if err != nil {
		return fmt.Errorf("upsert topic completeness: %w", mapError(err))
	}
	return requireAffected(result)
}

// Delete удаляет анкету (ответы и флаги удаляются каскадно).
func (r *QuestionaryRepo) Delete(ctx context.Context, id uuid.UUID) (*domain.Questionary, error) {
	var deleted *domain.Questionary
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		q, err := getQuestionary(ctx, tx, id)
		if err != nil {
			return err
		}
		result, err := tx.Exec(ctx, `DELETE FROM questionaries WHERE questionary_id = $1`, id)
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
func (r *QuestionaryRepo) Clone(ctx context.Context, sourceID uuid.UUID, clone *domain.Questionary) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		source, err := getQuestionary(ctx, tx, sourceID)
		if err != nil {
			return err
		}
		clone.TemplateID = source.TemplateID

		if _, err := tx.Exec(ctx, `
			INSERT INTO questionaries (questionary_id, template_id, creator_id, parent_questionary_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, clone.ID, clone.TemplateID, clone.CreatorID, sourceID, clone.CreatedAt); err != nil {
			return fmt.Errorf("insert clone: %w", mapError(err))
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO answers (questionary_id, question_id, answer, updated_at)
			SELECT $1::uuid, question_id, answer, $2::timestamptz
			FROM answers
			WHERE questionary_id = $3
		`, clone.ID, clone.CreatedAt, sourceID); err != nil {
			return fmt.Errorf("copy answers: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO topic_completenesses (questionary_id, topic_id, is_complete)
			SELECT $1::uuid, topic_id, is_complete
			FROM topic_completenesses
			WHERE questionary_id = $2
		`, clone.ID, sourceID); err != nil {
			return fmt.Errorf("copy topic completeness: %w", err)
		}
		return nil
	})
}

// DeleteStaleQuestionaries удаляет пустые черновики: созданные до before,
// без ответов и без дочерних анкет. Возвращает количество удалённых.
func (r *QuestionaryRepo) DeleteStaleQuestionaries(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM questionaries q
		WHERE q.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM answers a WHERE a.questionary_id = q.questionary_id)
		  AND NOT EXISTS (SELECT 1 FROM questionaries c WHERE c.parent_questionary_id = q.questionary_id)
	`
	result, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete stale questionaries: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *QuestionaryRepo) answers(ctx context.Context, questionaryID uuid.UUID) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT question_id, answer FROM answers WHERE questionary_id = $1
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

func (r *QuestionaryRepo) completeness(ctx context.Context, questionaryID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT topic_id, is_complete FROM topic_completenesses WHERE questionary_id = $1
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
