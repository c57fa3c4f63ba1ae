package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryMessage struct {
	id           string
	body         []byte
	visibleAt    time.Time
	receiveCount int
}

// MemoryQueue is an in-memory Queue with the same redelivery and
// dead-letter semantics as the Postgres queue. Used by tests.
type MemoryQueue struct {
	mu                sync.Mutex
	messages          []*memoryMessage
	deadLetters       []Message
	visibilityTimeout time.Duration
	maxReceiveCount   int

	// Now is the queue's clock; tests may replace it to advance
	// visibility without sleeping.
	Now func() time.Time
}

func NewMemoryQueue(visibilityTimeout time.Duration, maxReceiveCount int) *MemoryQueue {
	return &MemoryQueue{
		visibilityTimeout: visibilityTimeout,
		maxReceiveCount:   maxReceiveCount,
		Now:               time.Now,
	}
}

func (q *MemoryQueue) Send(_ context.Context, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.messages = append(q.messages, &memoryMessage{
		id:        uuid.NewString(),
		body:      append([]byte(nil), body...),
		visibleAt: q.Now(),
	})
	return nil
}

func (q *MemoryQueue) Receive(_ context.Context, max int) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.Now()
	q.sweepDeadLetters(now)

	var received []Message
	for _, m := range q.messages {
		if len(received) == max {
			break
		}
		if m.visibleAt.After(now) {
			continue
		}
		m.receiveCount++
		m.visibleAt = now.Add(q.visibilityTimeout)
		received = append(received, Message{
			ID:           m.id,
			Body:         append([]byte(nil), m.body...),
			ReceiveCount: m.receiveCount,
		})
	}
	return received, nil
}

func (q *MemoryQueue) Delete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, m := range q.messages {
		if m.id == id {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

// DeadLetters returns the messages removed from the live queue after
// exhausting their receive budget.
func (q *MemoryQueue) DeadLetters() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]Message(nil), q.deadLetters...)
}

// Len reports the number of messages still in the live queue.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.messages)
}

func (q *MemoryQueue) sweepDeadLetters(now time.Time) {
	kept := q.messages[:0]
	for _, m := range q.messages {
		if !m.visibleAt.After(now) && m.receiveCount >= q.maxReceiveCount {
			q.deadLetters = append(q.deadLetters, Message{
				ID:           m.id,
				Body:         append([]byte(nil), m.body...),
				ReceiveCount: m.receiveCount,
			})
			continue
		}
		kept = append(kept, m)
	}
	q.messages = kept
}
