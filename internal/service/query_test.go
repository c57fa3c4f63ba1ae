package service

import (
	"context"
	"fmt"
	"testing"

	"audit-service/internal/domain"
	"audit-service/internal/repository"
)

func seedLifecycle(t *testing.T, store *repository.MemoryEventStore, eventType domain.EventType, n int) []string {
	t.Helper()
	ctx := context.Background()

	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		millis := int64(1700000000000 + i)
		sortKey := domain.FormatSortKey(millis)
		record := &domain.AuditRecord{
			PartitionKey: eventType.PartitionKey(),
			SortKey:      sortKey,
			CreatedAt:    millis,
			ExpireAt:     millis/1000 + 300,
			Email:        "a@b.com",
			EventID:      fmt.Sprintf("req-%d", i),
			Detail: domain.LifecycleDetail{
				ProductID: fmt.Sprintf("p%d", i),
				Code:      "c1",
				Price:     9.99,
				RequestID: fmt.Sprintf("req-%d", i),
			},
		}
		if err := store.Put(ctx, record); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		keys = append(keys, sortKey)
	}
	return keys
}

func TestGetPageRequiresEventType(t *testing.T) {
	query := NewEventQuery(repository.NewMemoryEventStore())

	if _, err := query.GetPage(context.Background(), PageRequest{}); err == nil {
		t.Fatal("expected an error for a missing event type")
	}
}

func TestGetPageDefaultsTakeToFive(t *testing.T) {
	store := repository.NewMemoryEventStore()
	seedLifecycle(t, store, domain.ProductCreated, 8)
	query := NewEventQuery(store)

	page, err := query.GetPage(context.Background(), PageRequest{EventType: "PRODUCT_CREATED"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if page.Count != 5 || len(page.Items) != 5 {
		t.Fatalf("expected the default page size of 5, got %d", page.Count)
	}
	if page.EvaluatedAt == "" {
		t.Fatal("expected a continuation cursor")
	}
}

func TestGetPageChainsCursors(t *testing.T) {
	store := repository.NewMemoryEventStore()
	seedLifecycle(t, store, domain.ProductUpdated, 7)
	query := NewEventQuery(store)

	var products []string
	cursor := ""
	for pages := 0; ; pages++ {
		if pages > 10 {
			t.Fatal("cursor chain did not terminate")
		}
		page, err := query.GetPage(context.Background(), PageRequest{
			EventType:          "PRODUCT_UPDATED",
			Take:               3,
			StartedAtExclusive: cursor,
		})
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		for _, item := range page.Items {
			products = append(products, item.ProductID)
		}
		if page.EvaluatedAt == "" {
			break
		}
		cursor = page.EvaluatedAt
	}

	if len(products) != 7 {
		t.Fatalf("expected all 7 items across pages, got %d", len(products))
	}
	for i, product := range products {
		if product != fmt.Sprintf("p%d", i) {
			t.Fatalf("expected p%d at position %d, got %s (duplicate or gap)", i, i, product)
		}
	}
}

func TestGetPageRangeMode(t *testing.T) {
	store := repository.NewMemoryEventStore()
	keys := seedLifecycle(t, store, domain.ProductDeleted, 10)
	query := NewEventQuery(store)

	page, err := query.GetPage(context.Background(), PageRequest{
		EventType: "PRODUCT_DELETED",
		Take:      10,
		From:      keys[3],
		To:        keys[5],
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if page.Count != 3 {
		t.Fatalf("expected 3 items in range, got %d", page.Count)
	}
	for _, item := range page.Items {
		key := domain.FormatSortKey(item.CreatedAt)
		if key < keys[3] || key > keys[5] {
			t.Fatalf("item %s outside the requested range", key)
		}
	}
}

func TestGetPageAddressesSamePartitionAsIngestion(t *testing.T) {
	store := repository.NewMemoryEventStore()
	seedLifecycle(t, store, domain.ProductCreated, 1)
	query := NewEventQuery(store)

	// The ingest path keys records with EventType.PartitionKey; the
	// read path must resolve the same partition from the raw parameter.
	page, err := query.GetPage(context.Background(), PageRequest{EventType: "PRODUCT_CREATED", Take: 1})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if page.Count != 1 {
		t.Fatalf("expected the ingested record to be found, got %d items", page.Count)
	}
	if page.Items[0].ProductID != "p0" {
		t.Fatalf("unexpected item %+v", page.Items[0])
	}
}

func TestGetPageUnknownEventTypeIsEmpty(t *testing.T) {
	store := repository.NewMemoryEventStore()
	seedLifecycle(t, store, domain.ProductCreated, 3)
	query := NewEventQuery(store)

	page, err := query.GetPage(context.Background(), PageRequest{EventType: "PRODUCT_ARCHIVED"})
	if err != nil {
		t.Fatalf("expected an empty page, got error %v", err)
	}
	if page.Count != 0 || len(page.Items) != 0 || page.EvaluatedAt != "" {
		t.Fatalf("expected an empty page for an unknown event type, got %+v", page)
	}
}
