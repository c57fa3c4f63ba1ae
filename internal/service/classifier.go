package service

import (
	"context"
	"fmt"
	"time"

	"audit-service/internal/domain"
	"audit-service/internal/repository"
	"audit-service/internal/tracing"

	log "github.com/sirupsen/logrus"
)

// AuditExporter republishes persisted records to a downstream topic.
type AuditExporter interface {
	Export(ctx context.Context, record *domain.AuditRecord) error
}

// Classifier validates a notification against its consumer's event
// family, decodes the inner payload and persists the audit record.
type Classifier struct {
	store     repository.EventStore
	exporter  AuditExporter
	family    domain.EventFamily
	retention time.Duration
	now       func() time.Time
}

// NewClassifier builds a classifier for one event family. exporter may
// be nil to disable downstream export.
func NewClassifier(store repository.EventStore, exporter AuditExporter, family domain.EventFamily, retention time.Duration) *Classifier {
	return &Classifier{
		store:     store,
		exporter:  exporter,
		family:    family,
		retention: retention,
		now:       time.Now,
	}
}

// ClassifyAndPersist writes exactly one audit record for a valid
// envelope. Duplicates from redelivery are not deduplicated: each
// ingestion lands on its own sort key.
func (c *Classifier) ClassifyAndPersist(ctx context.Context, envelope *domain.NotificationEnvelope) error {
	eventType, err := domain.ParseEventType(envelope.EventType)
	if err != nil {
		return err
	}
	if eventType.Family() != c.family {
		return fmt.Errorf("%w: %s is outside the %s family", domain.ErrUnknownEventType, eventType, c.family)
	}

	email, detail, err := c.decode(envelope)
	if err != nil {
		return err
	}

	now := c.now()
	millis := now.UnixMilli()
	record := &domain.AuditRecord{
		PartitionKey: eventType.PartitionKey(),
		SortKey:      domain.FormatSortKey(millis),
		CreatedAt:    millis,
		ExpireAt:     now.Add(c.retention).Unix(),
		Email:        email,
		EventID:      envelope.CorrelationID,
		Detail:       detail,
	}

	if err := c.store.Put(ctx, record); err != nil {
		return fmt.Errorf("failed to persist audit record: %w", err)
	}

	log.WithFields(tracing.Fields(ctx)).WithFields(log.Fields{
		"event_type": eventType,
		"sort_key":   record.SortKey,
	}).Info("Audit record persisted")

	if c.exporter != nil {
		// Export is best effort: the record is already durable and the
		// message must not be redelivered over a downstream hiccup.
		if err := c.exporter.Export(ctx, record); err != nil {
			log.WithError(err).WithFields(tracing.Fields(ctx)).Warn("Failed to export audit record")
		}
	}
	return nil
}

func (c *Classifier) decode(envelope *domain.NotificationEnvelope) (string, domain.Detail, error) {
	if c.family == domain.FamilyFailure {
		payload, err := domain.DecodeFailurePayload(envelope.Payload)
		if err != nil {
			return "", nil, err
		}
		return payload.Email, domain.FailureDetail{
			ProductID:    payload.ProductID,
			Status:       payload.Status,
			ErrorMessage: payload.ErrorMessage,
			RequestID:    envelope.CorrelationID,
			TraceID:      envelope.TraceID,
		}, nil
	}

	payload, err := domain.DecodeLifecyclePayload(envelope.Payload)
	if err != nil {
		return "", nil, err
	}
	return payload.Email, domain.LifecycleDetail{
		ProductID: payload.ProductID,
		Code:      payload.Code,
		Price:     payload.Price,
		RequestID: envelope.CorrelationID,
		TraceID:   envelope.TraceID,
	}, nil
}
