package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrMalformedEnvelope = errors.New("malformed notification envelope")
	ErrUnknownEventType  = errors.New("unknown event type")
	ErrMalformedPayload  = errors.New("malformed event payload")
)

type EventType string

const (
	ProductCreated EventType = "PRODUCT_CREATED"
	ProductUpdated EventType = "PRODUCT_UPDATED"
	ProductDeleted EventType = "PRODUCT_DELETED"
	ProductFailure EventType = "PRODUCT_FAILURE"
)

type EventFamily string

const (
	FamilyLifecycle EventFamily = "lifecycle"
	FamilyFailure   EventFamily = "failure"
)

// ParseEventType resolves a raw event type against the fixed allow-list.
func ParseEventType(value string) (EventType, error) {
	switch t := EventType(value); t {
	case ProductCreated, ProductUpdated, ProductDeleted, ProductFailure:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, value)
	}
}

func (t EventType) Family() EventFamily {
	if t == ProductFailure {
		return FamilyFailure
	}
	return FamilyLifecycle
}

// PartitionKey groups records by event type so each type forms its own
// ordered timeline, e.g. "#product_PRODUCT_CREATED".
func (t EventType) PartitionKey() string {
	return "#product_" + string(t)
}

// FormatSortKey encodes an ingestion timestamp as the record sort key.
// Millisecond timestamps keep 13 digits until the year 2286, so plain
// decimal strings sort consistently with the numeric value.
// TODO: move to a fixed-width encoding before the 14-digit rollover.
func FormatSortKey(millis int64) string {
	return strconv.FormatInt(millis, 10)
}

// AuditRecord is the persisted unit of the audit trail. Records are
// created once at ingestion and never mutated; the store's reaper
// removes them after ExpireAt.
type AuditRecord struct {
	PartitionKey string
	SortKey      string
	CreatedAt    int64 // epoch millis, numeric form of SortKey
	ExpireAt     int64 // epoch seconds
	Email        string
	EventID      string
	Detail       Detail
}

// Detail is the per-family variant of an audit record: lifecycle
// events and failure events carry different fields.
type Detail interface {
	Family() EventFamily
}

type LifecycleDetail struct {
	ProductID string  `json:"id"`
	Code      string  `json:"code"`
	Price     float64 `json:"price"`
	RequestID string  `json:"requestId"`
	TraceID   string  `json:"traceId,omitempty"`
}

func (LifecycleDetail) Family() EventFamily { return FamilyLifecycle }

type FailureDetail struct {
	ProductID    string `json:"id,omitempty"`
	Status       int    `json:"status"`
	ErrorMessage string `json:"error"`
	RequestID    string `json:"requestId"`
	TraceID      string `json:"traceId,omitempty"`
}

func (FailureDetail) Family() EventFamily { return FamilyFailure }

// DecodeDetail picks the concrete detail variant for a stored record
// based on the partition's event type family.
func DecodeDetail(family EventFamily, data []byte) (Detail, error) {
	switch family {
	case FamilyFailure:
		var d FailureDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to decode failure detail: %w", err)
		}
		return d, nil
	default:
		var d LifecycleDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to decode lifecycle detail: %w", err)
		}
		return d, nil
	}
}

// LifecyclePayload is the decoded inner payload of a product
// created/updated/deleted notification.
type LifecyclePayload struct {
	ProductID string
	Code      string
	Price     float64
	Email     string
}

// FailurePayload is the decoded inner payload of a product failure
// notification. ProductID is optional: a failed create has no id.
type FailurePayload struct {
	Status       int
	ErrorMessage string
	Email        string
	ProductID    string
}

func DecodeLifecyclePayload(raw []byte) (LifecyclePayload, error) {
	var wire struct {
		ID    *string  `json:"id"`
		Code  *string  `json:"code"`
		Price *float64 `json:"price"`
		Email *string  `json:"email"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return LifecyclePayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if wire.ID == nil || wire.Code == nil || wire.Price == nil || wire.Email == nil {
		return LifecyclePayload{}, fmt.Errorf("%w: missing required lifecycle field", ErrMalformedPayload)
	}
	return LifecyclePayload{
		ProductID: *wire.ID,
		Code:      *wire.Code,
		Price:     *wire.Price,
		Email:     *wire.Email,
	}, nil
}

func DecodeFailurePayload(raw []byte) (FailurePayload, error) {
	var wire struct {
		Status *int    `json:"status"`
		Error  *string `json:"error"`
		Email  *string `json:"email"`
		ID     *string `json:"id"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return FailurePayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if wire.Status == nil || wire.Error == nil || wire.Email == nil {
		return FailurePayload{}, fmt.Errorf("%w: missing required failure field", ErrMalformedPayload)
	}
	p := FailurePayload{
		Status:       *wire.Status,
		ErrorMessage: *wire.Error,
		Email:        *wire.Email,
	}
	if wire.ID != nil {
		p.ProductID = *wire.ID
	}
	return p, nil
}
