package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"audit-service/internal/domain"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"
)

// KafkaExporter republishes persisted audit records to a Kafka topic
// for downstream consumers of the audit trail.
type KafkaExporter struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaExporter(bootstrapServers, topic string) (*KafkaExporter, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": bootstrapServers})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("Audit export Kafka producer created successfully")

	return &KafkaExporter{producer: p, topic: topic}, nil
}

type exportedRecord struct {
	PartitionKey string        `json:"partitionKey"`
	SortKey      string        `json:"sortKey"`
	CreatedAt    int64         `json:"createdAt"`
	ExpireAt     int64         `json:"expireAt"`
	Email        string        `json:"email,omitempty"`
	EventID      string        `json:"eventId"`
	Detail       domain.Detail `json:"detail"`
}

func (e *KafkaExporter) Export(ctx context.Context, record *domain.AuditRecord) error {
	payload, err := json.Marshal(exportedRecord{
		PartitionKey: record.PartitionKey,
		SortKey:      record.SortKey,
		CreatedAt:    record.CreatedAt,
		ExpireAt:     record.ExpireAt,
		Email:        record.Email,
		EventID:      record.EventID,
		Detail:       record.Detail,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	// Buffered and never closed: the producer's poller delivers the
	// report here even after a timeout or cancellation has already
	// made Export return, and a send on a closed channel would panic
	// the process.
	deliveryChan := make(chan kafka.Event, 1)

	if err := e.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &e.topic, Partition: kafka.PartitionAny},
		Key:            []byte(record.PartitionKey),
		Value:          payload,
	}, deliveryChan); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return awaitDelivery(ctx, deliveryChan)
}

func awaitDelivery(ctx context.Context, deliveryChan chan kafka.Event) error {
	select {
	case ev := <-deliveryChan:
		msg, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected event type: %T", ev)
		}
		if msg.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", msg.TopicPartition.Error)
		}
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("delivery timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *KafkaExporter) Close() {
	log.Info("Closing audit export Kafka producer...")
	e.producer.Flush(15 * 1000)
	e.producer.Close()
}
