package repository

import (
	"context"
	"fmt"
	"time"

	"gigmarket/internal/outbox"
	"gigmarket/pkg/db"

	"github.com/google/uuid"
)

type OutboxRepository struct {
	db db.DBTX
}

// NewOutboxRepository accepts a *sql.DB or a *sql.Tx; Enqueue is meant to
// run on the transaction of the state change.
func NewOutboxRepository(db db.DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, msgs ...outbox.Message) error {
	for _, m := range msgs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO outbox_messages (id, kind, payload, next_attempt_at) VALUES ($1, $2, $3, $4)`,
			m.ID, m.Kind, []byte(m.Payload), m.NextAttemptAt)
		if err != nil {
			return fmt.Errorf("enqueue %s: %w", m.Kind, err)
		}
	}
	return nil
}

// ClaimDue leases up to limit due messages so that concurrent workers skip
// them until the lease runs out.
func (r *OutboxRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]outbox.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE outbox_messages SET next_attempt_at = $2
		 WHERE id IN (
		     SELECT id FROM outbox_messages
		     WHERE dispatched_at IS NULL AND dead_at IS NULL AND next_attempt_at <= $1
		     ORDER BY created_at
		     LIMIT $3
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, kind, payload, attempts, last_error, next_attempt_at, created_at`,
		now, now.Add(lease), limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox: %w", err)
	}
	defer rows.Close()

	var msgs []outbox.Message
	for rows.Next() {
		var m outbox.Message
		var payload []byte
		if err := rows.Scan(&m.ID, &m.Kind, &payload, &m.Attempts, &m.LastError, &m.NextAttemptAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		m.Payload = payload
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *OutboxRepository) MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_messages SET dispatched_at = $1, attempts = attempts + 1, last_error = '' WHERE id = $2`,
		at, id)
	if err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, next time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_messages SET attempts = attempts + 1, last_error = $1, next_attempt_at = $2 WHERE id = $3`,
		reason, next, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// MarkDead parks a message that ran out of attempts. It is kept for
// inspection and never claimed again.
func (r *OutboxRepository) MarkDead(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_messages SET attempts = attempts + 1, last_error = $1, dead_at = $2 WHERE id = $3`,
		reason, at, id)
	if err != nil {
		return fmt.Errorf("mark dead: %w", err)
	}
	return nil
}

// CountPending is exposed on the health endpoint.
func (r *OutboxRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox_messages WHERE dispatched_at IS NULL AND dead_at IS NULL`).Scan(&n)
	return n, err
}

func (r *OutboxRepository) CountDead(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox_messages WHERE dead_at IS NOT NULL`).Scan(&n)
	return n, err
}
