package repository

import (
	"context"

	"audit-service/internal/domain"
)

// PageQuery selects one page of a partition's timeline. From and To
// bound the sort-key range when both are set; StartAfter is the
// exclusive continuation cursor of a previous page.
type PageQuery struct {
	PartitionKey string
	From         string
	To           string
	StartAfter   string
	Limit        int
}

// PageResult is one page of records in ascending sort-key order.
// EvaluatedAt is the cursor for the next page; empty means the
// partition was exhausted within this fetch.
type PageResult struct {
	Records     []domain.AuditRecord
	EvaluatedAt string
}

// EventStore is the append-only audit record store. Put is an
// unconditional upsert on (partitionKey, sortKey); QueryPage performs
// exactly one underlying fetch and never loops to fill a short page.
// Expired records are removed passively by the store's reaper, so
// reads may transiently observe records past their expiry.
type EventStore interface {
	Put(ctx context.Context, record *domain.AuditRecord) error
	QueryPage(ctx context.Context, query PageQuery) (*PageResult, error)
}
