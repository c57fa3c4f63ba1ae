package service

import (
	"context"
	"sync"
	"time"

	"audit-service/internal/domain"
	"audit-service/internal/queue"
	"audit-service/internal/tracing"

	log "github.com/sirupsen/logrus"
)

// Subscriber long-polls one notification queue on a fixed cadence and
// fans each batch out to the classifier. Messages in a batch are
// processed concurrently and independently: one bad message never
// stops the batch or the cycle.
type Subscriber struct {
	name       string
	queue      queue.Queue
	classifier *Classifier
	batchSize  int
	interval   time.Duration
}

func NewSubscriber(name string, q queue.Queue, classifier *Classifier, batchSize int, interval time.Duration) *Subscriber {
	return &Subscriber{
		name:       name,
		queue:      q,
		classifier: classifier,
		batchSize:  batchSize,
		interval:   interval,
	}
}

// Run polls until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) {
	log.WithFields(log.Fields{
		"subscription": s.name,
		"interval":     s.interval,
	}).Info("Subscriber started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.WithField("subscription", s.name).Info("Subscriber stopped")
			return
		case <-ticker.C:
			s.drain(ctx)
		}
	}
}

// drain receives batches until the queue comes back empty. A failed
// poll ends the cycle; the next tick retries.
func (s *Subscriber) drain(ctx context.Context) {
	for {
		messages, err := s.queue.Receive(ctx, s.batchSize)
		if err != nil {
			log.WithError(err).WithField("subscription", s.name).Error("Failed to poll queue")
			return
		}
		if len(messages) == 0 {
			return
		}

		log.WithFields(log.Fields{
			"subscription": s.name,
			"count":        len(messages),
		}).Info("Received event batch")

		var wg sync.WaitGroup
		for _, message := range messages {
			wg.Add(1)
			go func(message queue.Message) {
				defer wg.Done()
				s.process(ctx, message)
			}(message)
		}
		wg.Wait()
	}
}

// process runs one message through decode -> classify -> persist and
// deletes it only after the record is durable, so a store failure
// falls back to queue redelivery instead of losing the event.
func (s *Subscriber) process(ctx context.Context, message queue.Message) {
	envelope, err := domain.DecodeEnvelope(message.Body)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"subscription":  s.name,
			"message_id":    message.ID,
			"receive_count": message.ReceiveCount,
		}).Error("Failed to decode envelope")
		return
	}

	ctx = tracing.NewContext(ctx, tracing.Scope{
		TraceID:       envelope.TraceID,
		CorrelationID: envelope.CorrelationID,
	})

	if err := s.classifier.ClassifyAndPersist(ctx, envelope); err != nil {
		log.WithError(err).WithFields(tracing.Fields(ctx)).WithFields(log.Fields{
			"subscription":  s.name,
			"message_id":    message.ID,
			"receive_count": message.ReceiveCount,
		}).Error("Failed to process event")
		return
	}

	if err := s.queue.Delete(ctx, message.ID); err != nil {
		// The record is persisted; redelivery will add a duplicate,
		// which the store tolerates.
		log.WithError(err).WithFields(tracing.Fields(ctx)).WithField("subscription", s.name).Error("Failed to delete event")
		return
	}

	log.WithFields(tracing.Fields(ctx)).WithField("subscription", s.name).Info("Event processed and deleted")
}
