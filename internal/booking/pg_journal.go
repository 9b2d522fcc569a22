package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgJournal appends events to the event_logs table.
type PgJournal struct {
	pool *pgxpool.Pool
}

func NewPgJournal(pool *pgxpool.Pool) *PgJournal {
	return &PgJournal{pool: pool}
}

// EnsureSchema creates event_logs when it does not exist yet.
func (j *PgJournal) EnsureSchema(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS event_logs (
			id         UUID PRIMARY KEY,
			event_type TEXT NOT NULL,
			subject    TEXT NOT NULL,
			payload    JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create event_logs: %w", err)
	}
	return nil
}

func (j *PgJournal) Record(ctx context.Context, ev EventLog) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO event_logs (id, event_type, subject, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.ID, ev.EventType, ev.Subject, nullablePayload(ev.Payload), nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullablePayload(p []byte) *string {
	if len(p) == 0 {
		return nil
	}
	s := string(p)
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
