package repository

import (
	"context"
	"sort"
	"sync"

	"audit-service/internal/domain"
)

// MemoryEventStore is an in-memory EventStore with the same paging
// and expiry contract as the Postgres store. Used by tests.
type MemoryEventStore struct {
	mu         sync.Mutex
	partitions map[string][]domain.AuditRecord
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{partitions: make(map[string][]domain.AuditRecord)}
}

func (s *MemoryEventStore) Put(_ context.Context, record *domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	partition := s.partitions[record.PartitionKey]
	for i, existing := range partition {
		if existing.SortKey == record.SortKey {
			partition[i] = *record
			return nil
		}
	}
	partition = append(partition, *record)
	sort.Slice(partition, func(i, j int) bool {
		return partition[i].SortKey < partition[j].SortKey
	})
	s.partitions[record.PartitionKey] = partition
	return nil
}

func (s *MemoryEventStore) QueryPage(_ context.Context, query PageQuery) (*PageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.AuditRecord
	for _, record := range s.partitions[query.PartitionKey] {
		if query.From != "" && query.To != "" {
			if record.SortKey < query.From || record.SortKey > query.To {
				continue
			}
		}
		if query.StartAfter != "" && record.SortKey <= query.StartAfter {
			continue
		}
		matched = append(matched, record)
	}

	result := &PageResult{}
	if len(matched) > query.Limit {
		result.Records = matched[:query.Limit]
		result.EvaluatedAt = result.Records[len(result.Records)-1].SortKey
	} else {
		result.Records = matched
	}
	return result, nil
}

// RemoveExpired reaps records whose expiry has elapsed at the given
// epoch-seconds instant and reports how many were removed.
func (s *MemoryEventStore) RemoveExpired(nowSeconds int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, partition := range s.partitions {
		kept := partition[:0]
		for _, record := range partition {
			if record.ExpireAt <= nowSeconds {
				removed++
				continue
			}
			kept = append(kept, record)
		}
		s.partitions[key] = kept
	}
	return removed
}

// Count reports the number of live records in one partition.
func (s *MemoryEventStore) Count(partitionKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.partitions[partitionKey])
}
