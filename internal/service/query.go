package service

import (
	"context"
	"fmt"

	"audit-service/internal/domain"
	"audit-service/internal/repository"
)

const defaultPageSize = 5

// PageRequest is the external paged query: an event type's partition,
// an optional sort-key range (both bounds or neither) and an opaque
// continuation cursor.
type PageRequest struct {
	EventType          string
	Take               int
	From               string
	To                 string
	StartedAtExclusive string
}

type EventView struct {
	ProductID string   `json:"productId,omitempty"`
	Code      string   `json:"code,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Status    *int     `json:"status,omitempty"`
	Error     string   `json:"error,omitempty"`
	RequestID string   `json:"requestId"`
	Email     string   `json:"email"`
	CreatedAt int64    `json:"createdAt"`
}

type PageResponse struct {
	Items       []EventView `json:"items"`
	EvaluatedAt string      `json:"evaluatedAt,omitempty"`
	Count       int         `json:"count"`
}

// EventQuery is the paginated read path over the event store.
type EventQuery struct {
	store repository.EventStore
}

func NewEventQuery(store repository.EventStore) *EventQuery {
	return &EventQuery{store: store}
}

// GetPage fetches at most one underlying store page. An event type
// outside the allow-list simply addresses an empty partition and
// yields an empty page.
func (q *EventQuery) GetPage(ctx context.Context, request PageRequest) (*PageResponse, error) {
	if request.EventType == "" {
		return nil, fmt.Errorf("event type is required")
	}

	take := request.Take
	if take <= 0 {
		take = defaultPageSize
	}

	query := repository.PageQuery{
		PartitionKey: domain.EventType(request.EventType).PartitionKey(),
		StartAfter:   request.StartedAtExclusive,
		Limit:        take,
	}
	if request.From != "" && request.To != "" {
		query.From = request.From
		query.To = request.To
	}

	result, err := q.store.QueryPage(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	items := make([]EventView, 0, len(result.Records))
	for _, record := range result.Records {
		items = append(items, toView(record))
	}
	return &PageResponse{
		Items:       items,
		EvaluatedAt: result.EvaluatedAt,
		Count:       len(items),
	}, nil
}

func toView(record domain.AuditRecord) EventView {
	view := EventView{
		Email:     record.Email,
		CreatedAt: record.CreatedAt,
	}
	switch detail := record.Detail.(type) {
	case domain.LifecycleDetail:
		price := detail.Price
		view.ProductID = detail.ProductID
		view.Code = detail.Code
		view.Price = &price
		view.RequestID = detail.RequestID
	case domain.FailureDetail:
		status := detail.Status
		view.ProductID = detail.ProductID
		view.Status = &status
		view.Error = detail.ErrorMessage
		view.RequestID = detail.RequestID
	}
	return view
}
