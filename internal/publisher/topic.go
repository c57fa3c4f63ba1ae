package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"audit-service/internal/domain"
	"audit-service/internal/queue"
	"audit-service/internal/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type topicAttribute struct {
	Type  string `json:"Type"`
	Value string `json:"Value"`
}

type topicEnvelope struct {
	MessageID  string `json:"MessageId"`
	Message    string `json:"Message"`
	Type       string `json:"Type"`
	TopicArn   string `json:"TopicArn"`
	Timestamp  string `json:"Timestamp"`
	Attributes struct {
		TraceID       topicAttribute `json:"traceId"`
		EventType     topicAttribute `json:"eventType"`
		CorrelationID topicAttribute `json:"correlationId"`
	} `json:"MessageAttributes"`
}

// Topic fans a notification out to every subscribed queue, wrapped in
// the pub/sub envelope the audit consumers decode.
type Topic struct {
	arn           string
	subscriptions []queue.Queue
}

func NewTopic(arn string, subscriptions ...queue.Queue) *Topic {
	return &Topic{arn: arn, subscriptions: subscriptions}
}

// Publish encodes payload as the inner message and delivers one copy
// of the envelope to each subscription.
func (t *Topic) Publish(ctx context.Context, eventType domain.EventType, payload interface{}, scope tracing.Scope) error {
	message, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	envelope := topicEnvelope{
		MessageID: uuid.NewString(),
		Message:   string(message),
		Type:      "Notification",
		TopicArn:  t.arn,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	envelope.Attributes.TraceID = topicAttribute{Type: "String", Value: scope.TraceID}
	envelope.Attributes.EventType = topicAttribute{Type: "String", Value: string(eventType)}
	envelope.Attributes.CorrelationID = topicAttribute{Type: "String", Value: scope.CorrelationID}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal notification envelope: %w", err)
	}

	for _, subscription := range t.subscriptions {
		if err := subscription.Send(ctx, body); err != nil {
			return fmt.Errorf("failed to publish notification: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"topic":      t.arn,
		"event_type": eventType,
		"message_id": envelope.MessageID,
	}).Debug("Notification published")
	return nil
}
