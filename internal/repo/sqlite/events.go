package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/Questionary/internal/events"
)

// InsertEvent записывает событие в event_logs.
// Повторная доставка того же события игнорируется.
func (s *Store) InsertEvent(ctx context.Context, e *events.Event) error {
	payload, err := json.Marshal(e.Subject)
	if err != nil {
		return fmt.Errorf("marshal event subject: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_logs (event_id, event_type, entity_key, actor_id, is_rejection, reason, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING
	`, e.ID, e.Type.String(), e.Key, e.ActorID, e.IsRejection, e.Reason.String(), string(payload), toMillis(e.OccurredAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", mapError(err))
	}
	return nil
}

// CountEvents возвращает количество записанных событий типа typ.
func (s *Store) CountEvents(ctx context.Context, typ events.Type) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_logs WHERE event_type = ?`, typ.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
