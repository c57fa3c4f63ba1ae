package domain

import (
	"encoding/json"
	"fmt"
)

// NotificationEnvelope is one inbound notification: the pub/sub
// wrapper's routing attributes plus the still-encoded business
// payload. Typed payload decoding is deferred to the classifier
// because the payload shape depends on EventType.
type NotificationEnvelope struct {
	MessageID     string
	Payload       []byte
	EventType     string
	CorrelationID string
	TraceID       string
}

type envelopeAttribute struct {
	Type  string `json:"Type"`
	Value string `json:"Value"`
}

type envelopeWire struct {
	MessageID  string `json:"MessageId"`
	Message    string `json:"Message"`
	Type       string `json:"Type"`
	TopicArn   string `json:"TopicArn"`
	Timestamp  string `json:"Timestamp"`
	Attributes struct {
		TraceID       *envelopeAttribute `json:"traceId"`
		EventType     *envelopeAttribute `json:"eventType"`
		CorrelationID *envelopeAttribute `json:"correlationId"`
	} `json:"MessageAttributes"`
}

// DecodeEnvelope parses a raw queue message body into a
// NotificationEnvelope. The traceId, eventType and correlationId
// attributes are required; a missing one makes the envelope
// malformed, not merely unprocessable.
func DecodeEnvelope(body []byte) (*NotificationEnvelope, error) {
	var wire envelopeWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	attrs := wire.Attributes
	if attrs.EventType == nil || attrs.CorrelationID == nil || attrs.TraceID == nil {
		return nil, fmt.Errorf("%w: missing required message attribute", ErrMalformedEnvelope)
	}
	return &NotificationEnvelope{
		MessageID:     wire.MessageID,
		Payload:       []byte(wire.Message),
		EventType:     attrs.EventType.Value,
		CorrelationID: attrs.CorrelationID.Value,
		TraceID:       attrs.TraceID.Value,
	}, nil
}
