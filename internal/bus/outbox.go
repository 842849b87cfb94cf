package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Outbox is a PostgreSQL-backed Publisher. Publish only records the message;
// a Dispatcher delivers it to the topic's subscriber out of band. The insert
// shares no transaction with document writes, so a publish can succeed while
// delivery lags behind it — consumers tolerate that with their read retry.
type Outbox struct {
	db *pgxpool.Pool
}

// NewOutbox creates a new Outbox.
func NewOutbox(db *pgxpool.Pool) *Outbox {
	return &Outbox{db: db}
}

var _ Publisher = (*Outbox)(nil)

// InitSchema creates the outbox table if it does not exist.
func (o *Outbox) InitSchema(ctx context.Context) error {
	_, err := o.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bus_messages (
			id              TEXT PRIMARY KEY,
			topic           TEXT NOT NULL,
			payload         BYTEA NOT NULL,
			attempts        INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			delivered_at    TIMESTAMPTZ,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS bus_messages_pending_idx
			ON bus_messages (topic, next_attempt_at)
			WHERE delivered_at IS NULL;
	`)
	if err != nil {
		return fmt.Errorf("failed to create bus_messages table: %w", err)
	}
	return nil
}

// Publish serializes the payload and enqueues it for delivery.
func (o *Outbox) Publish(ctx context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	id := uuid.New().String()
	_, err = o.db.Exec(ctx, `
		INSERT INTO bus_messages (id, topic, payload)
		VALUES ($1, $2, $3)
	`, id, topic, data)
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return id, nil
}
