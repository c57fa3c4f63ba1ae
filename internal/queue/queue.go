package queue

import "context"

// Message is one received queue message. ID doubles as the receipt
// handle used to delete the message after processing.
type Message struct {
	ID           string
	Body         []byte
	ReceiveCount int
}

// Queue is a durable message queue with at-least-once delivery.
// Received messages become invisible for the visibility timeout and
// are redelivered unless deleted; a message that exhausts its receive
// budget is moved to the dead-letter store.
type Queue interface {
	Send(ctx context.Context, body []byte) error
	Receive(ctx context.Context, max int) ([]Message, error)
	Delete(ctx context.Context, id string) error
}
