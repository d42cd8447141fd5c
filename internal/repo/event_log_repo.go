package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Questionary/internal/events"
)

// EventLogRepo — журнал доменных событий (event_logs).
type EventLogRepo struct {
	pool *pgxpool.Pool
}

// NewEventLogRepo создаёт новый EventLogRepo.
func NewEventLogRepo(pool *pgxpool.Pool) *EventLogRepo {
	return &EventLogRepo{pool: pool}
}

// InsertEvent записывает событие. Повторная доставка игнорируется.
func (r *EventLogRepo) InsertEvent(ctx context.Context, e *events.Event) error {
	payload, err := json.Marshal(e.Subject)
	if err != nil {
		return fmt.Errorf("marshal event subject: %w", err)
	}

	query := `
		INSERT INTO event_logs (event_id, event_type, entity_key, actor_id, is_rejection, reason, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, query,
		e.ID,
		e.Type.String(),
		e.Key,
		e.ActorID,
		e.IsRejection,
		e.Reason.String(),
		string(payload),
		e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert event log: %w", mapError(err))
	}
	return nil
}

// CountEvents возвращает количество записанных событий типа typ.
func (r *EventLogRepo) CountEvents(ctx context.Context, typ events.Type) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM event_logs WHERE event_type = $1`, typ.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
