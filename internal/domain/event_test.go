package domain

import (
	"errors"
	"testing"
)

func TestParseEventTypeAllowList(t *testing.T) {
	for _, value := range []string{"PRODUCT_CREATED", "PRODUCT_UPDATED", "PRODUCT_DELETED", "PRODUCT_FAILURE"} {
		eventType, err := ParseEventType(value)
		if err != nil {
			t.Fatalf("expected %s to parse, got %v", value, err)
		}
		if string(eventType) != value {
			t.Fatalf("expected %s, got %s", value, eventType)
		}
	}

	if _, err := ParseEventType("PRODUCT_ARCHIVED"); !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestPartitionKeyForm(t *testing.T) {
	if key := ProductCreated.PartitionKey(); key != "#product_PRODUCT_CREATED" {
		t.Fatalf("unexpected partition key %s", key)
	}
	if key := ProductFailure.PartitionKey(); key != "#product_PRODUCT_FAILURE" {
		t.Fatalf("unexpected partition key %s", key)
	}
}

func TestEventTypeFamily(t *testing.T) {
	for _, eventType := range []EventType{ProductCreated, ProductUpdated, ProductDeleted} {
		if eventType.Family() != FamilyLifecycle {
			t.Fatalf("expected %s in lifecycle family", eventType)
		}
	}
	if ProductFailure.Family() != FamilyFailure {
		t.Fatal("expected PRODUCT_FAILURE in failure family")
	}
}

func TestDecodeLifecyclePayload(t *testing.T) {
	payload, err := DecodeLifecyclePayload([]byte(`{"id":"p1","code":"c1","price":9.99,"email":"a@b.com","extra":"ignored"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.ProductID != "p1" || payload.Code != "c1" || payload.Price != 9.99 || payload.Email != "a@b.com" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecodeLifecyclePayloadMissingField(t *testing.T) {
	_, err := DecodeLifecyclePayload([]byte(`{"id":"p1","code":"c1","email":"a@b.com"}`))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestDecodeFailurePayload(t *testing.T) {
	payload, err := DecodeFailurePayload([]byte(`{"status":404,"error":"Product not found","email":"a@b.com"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.Status != 404 || payload.ErrorMessage != "Product not found" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.ProductID != "" {
		t.Fatalf("expected empty product id, got %s", payload.ProductID)
	}
}

func TestDecodeFailurePayloadMissingStatus(t *testing.T) {
	_, err := DecodeFailurePayload([]byte(`{"error":"boom","email":"a@b.com"}`))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestDecodeDetailByFamily(t *testing.T) {
	detail, err := DecodeDetail(FamilyFailure, []byte(`{"status":500,"error":"boom","requestId":"r1"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	failure, ok := detail.(FailureDetail)
	if !ok {
		t.Fatalf("expected FailureDetail, got %T", detail)
	}
	if failure.Status != 500 || failure.ErrorMessage != "boom" {
		t.Fatalf("unexpected detail %+v", failure)
	}
	if failure.Family() != FamilyFailure {
		t.Fatal("detail family must match the partition family")
	}
}

func TestFormatSortKeyOrdering(t *testing.T) {
	earlier := FormatSortKey(1700000000000)
	later := FormatSortKey(1700000000001)
	if !(earlier < later) {
		t.Fatalf("expected %s to sort before %s", earlier, later)
	}
}
