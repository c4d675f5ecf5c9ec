// Package storage provides decision log backends: an in-memory store
// and a SQLite store.
package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/callisto/pkg/decision"
)

// MemoryStore keeps decision records in memory. It is the default
// backend and the one tests use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*decision.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Store appends a copy of the record.
func (s *MemoryStore) Store(ctx context.Context, record *decision.Record) error {
	clone := *record
	s.mu.Lock()
	s.records = append(s.records, &clone)
	s.mu.Unlock()
	return nil
}

// Query returns matching records, newest first unless the query asks
// for ascending order.
func (s *MemoryStore) Query(ctx context.Context, query *decision.Query) ([]*decision.Record, error) {
	s.mu.RLock()
	matched := s.filter(query)
	s.mu.RUnlock()

	ascending := query != nil && query.SortOrder == "asc"
	sort.SliceStable(matched, func(i, j int) bool {
		if ascending {
			return matched[i].Time.Before(matched[j].Time)
		}
		return matched[i].Time.After(matched[j].Time)
	})

	return paginate(matched, query), nil
}

// Count returns the number of matching records.
func (s *MemoryStore) Count(ctx context.Context, query *decision.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filter(query))), nil
}

// Delete removes matching records.
func (s *MemoryStore) Delete(ctx context.Context, query *decision.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, record := range s.records {
		if matches(record, query) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	s.records = kept
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error { return nil }

// filter returns the matching records without copying them. Callers
// hold the lock.
func (s *MemoryStore) filter(query *decision.Query) []*decision.Record {
	matched := make([]*decision.Record, 0, len(s.records))
	for _, record := range s.records {
		if matches(record, query) {
			matched = append(matched, record)
		}
	}
	return matched
}

func matches(record *decision.Record, query *decision.Query) bool {
	if query == nil {
		return true
	}
	if query.StartTime != nil && record.Time.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.Time.After(*query.EndTime) {
		return false
	}
	if query.Policy != "" && record.Policy != query.Policy {
		return false
	}
	if query.Outcome != "" && record.Outcome != query.Outcome {
		return false
	}
	return true
}

func paginate(records []*decision.Record, query *decision.Query) []*decision.Record {
	if query == nil {
		return records
	}
	if query.Offset > 0 {
		if query.Offset >= len(records) {
			return nil
		}
		records = records[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(records) {
		records = records[:query.Limit]
	}
	return records
}
