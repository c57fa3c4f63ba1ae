package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

type postgresQueue struct {
	db                *sql.DB
	name              string
	visibilityTimeout time.Duration
	maxReceiveCount   int
}

// NewPostgresQueue returns a Postgres-backed queue named name. All
// queues share the queue_messages and queue_dead_letters tables.
func NewPostgresQueue(db *sql.DB, name string, visibilityTimeout time.Duration, maxReceiveCount int) Queue {
	return &postgresQueue{
		db:                db,
		name:              name,
		visibilityTimeout: visibilityTimeout,
		maxReceiveCount:   maxReceiveCount,
	}
}

func (q *postgresQueue) Send(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO queue_messages (id, queue, body, visible_at, receive_count)
		VALUES ($1, $2, $3, NOW(), 0)
	`

	if _, err := q.db.ExecContext(ctx, query, uuid.NewString(), q.name, body); err != nil {
		log.WithError(err).WithField("queue", q.name).Error("Failed to enqueue message")
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

func (q *postgresQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := q.sweepDeadLetters(ctx); err != nil {
		return nil, err
	}

	// Claim up to max visible messages: bump the receive count and push
	// visibility forward so concurrent consumers skip them.
	query := `
		UPDATE queue_messages m
		SET visible_at = NOW() + make_interval(secs => $3),
			receive_count = m.receive_count + 1
		FROM (
			SELECT id FROM queue_messages
			WHERE queue = $1 AND visible_at <= NOW()
			ORDER BY enqueued_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		) claimed
		WHERE m.id = claimed.id
		RETURNING m.id, m.body, m.receive_count
	`

	rows, err := q.db.QueryContext(ctx, query, q.name, max, q.visibilityTimeout.Seconds())
	if err != nil {
		log.WithError(err).WithField("queue", q.name).Error("Failed to receive messages")
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Body, &m.ReceiveCount); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}

func (q *postgresQueue) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `DELETE FROM queue_messages WHERE queue = $1 AND id = $2`

	if _, err := q.db.ExecContext(ctx, query, q.name, id); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"queue":      q.name,
			"message_id": id,
		}).Error("Failed to delete message")
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// sweepDeadLetters moves messages whose redelivery budget is spent out
// of the live queue before the next claim.
func (q *postgresQueue) sweepDeadLetters(ctx context.Context) error {
	query := `
		WITH exhausted AS (
			DELETE FROM queue_messages
			WHERE queue = $1 AND visible_at <= NOW() AND receive_count >= $2
			RETURNING id, queue, body, receive_count, enqueued_at
		)
		INSERT INTO queue_dead_letters (id, queue, body, receive_count, enqueued_at)
		SELECT id, queue, body, receive_count, enqueued_at FROM exhausted
	`

	result, err := q.db.ExecContext(ctx, query, q.name, q.maxReceiveCount)
	if err != nil {
		log.WithError(err).WithField("queue", q.name).Error("Failed to dead-letter messages")
		return fmt.Errorf("failed to dead-letter messages: %w", err)
	}
	if moved, err := result.RowsAffected(); err == nil && moved > 0 {
		log.WithFields(log.Fields{
			"queue": q.name,
			"count": moved,
		}).Warn("Moved messages to the dead-letter queue")
	}
	return nil
}
