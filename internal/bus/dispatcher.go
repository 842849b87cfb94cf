package bus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reliefmesh/reliefmesh/internal/logging"
)

// Dispatcher delivers pending outbox messages to per-topic subscriber
// endpoints. A 2xx response marks the message delivered; anything else
// reschedules it with a doubling delay, so delivery is at-least-once until
// the subscriber acknowledges. Acknowledging a deterministically-failing
// payload is the subscriber's job.
//
// Multiple dispatchers may run against the same outbox: row claims use
// FOR UPDATE SKIP LOCKED, so two processes never deliver the same row
// concurrently, though a crash between POST and commit can redeliver.
type Dispatcher struct {
	db        *pgxpool.Pool
	endpoints map[string]string
	client    *http.Client
	interval  time.Duration
	retryBase time.Duration
	retryCap  time.Duration
	logger    *logging.Logger
}

// NewDispatcher creates a Dispatcher delivering to the given topic->URL map.
func NewDispatcher(db *pgxpool.Pool, endpoints map[string]string, interval, retryBase, retryCap time.Duration, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		db:        db,
		endpoints: endpoints,
		client:    &http.Client{Timeout: 30 * time.Second},
		interval:  interval,
		retryBase: retryBase,
		retryCap:  retryCap,
		logger:    logger.Named("dispatcher"),
	}
}

// Run polls the outbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("dispatch pass failed", "error", err)
			}
		}
	}
}

// DispatchOnce delivers every currently-due pending message.
func (d *Dispatcher) DispatchOnce(ctx context.Context) error {
	for {
		delivered, err := d.dispatchNext(ctx)
		if err != nil {
			return err
		}
		if !delivered {
			return nil
		}
	}
}

// dispatchNext claims and handles at most one due message. It reports whether
// a message was claimed, delivered or not.
func (d *Dispatcher) dispatchNext(ctx context.Context) (bool, error) {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin dispatch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		id       string
		topic    string
		payload  []byte
		attempts int
	)
	err = tx.QueryRow(ctx, `
		SELECT id, topic, payload, attempts
		FROM bus_messages
		WHERE delivered_at IS NULL AND next_attempt_at <= now()
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&id, &topic, &payload, &attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim message: %w", err)
	}

	if d.deliver(ctx, id, topic, payload) {
		_, err = tx.Exec(ctx,
			"UPDATE bus_messages SET delivered_at = now(), attempts = attempts + 1 WHERE id = $1", id)
	} else {
		delay := d.retryDelay(attempts)
		d.logger.Warn("delivery failed, rescheduling",
			"message_id", id, "topic", topic, "attempt", attempts+1, "retry_in", delay)
		_, err = tx.Exec(ctx,
			"UPDATE bus_messages SET attempts = attempts + 1, next_attempt_at = now() + $2 WHERE id = $1",
			id, delay)
	}
	if err != nil {
		return false, fmt.Errorf("failed to update message %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit dispatch tx: %w", err)
	}
	return true, nil
}

// deliver POSTs the push envelope to the topic's subscriber. True means the
// subscriber acknowledged with a 2xx.
func (d *Dispatcher) deliver(ctx context.Context, id, topic string, payload []byte) bool {
	endpoint, ok := d.endpoints[topic]
	if !ok {
		d.logger.Error("no endpoint configured for topic", "topic", topic, "message_id", id)
		return false
	}

	body, err := EncodeEnvelope(topic, id, payload)
	if err != nil {
		d.logger.Error("failed to encode envelope", "message_id", id, "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		d.logger.Error("failed to build push request", "message_id", id, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("push request failed", "message_id", id, "endpoint", endpoint, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Warn("subscriber rejected push", "message_id", id, "status", resp.StatusCode)
		return false
	}
	return true
}

func (d *Dispatcher) retryDelay(attempts int) time.Duration {
	delay := d.retryBase
	for i := 0; i < attempts && delay < d.retryCap; i++ {
		delay *= 2
	}
	if delay > d.retryCap {
		delay = d.retryCap
	}
	return delay
}
