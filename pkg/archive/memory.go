package archive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// MemoryStorage implements Storage with an in-memory map. Records are lost
// when the process exits.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStorage creates an empty in-memory archive.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]*Record)}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return NewStorageError("memory", "store", errors.New("record ID is required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; ok {
		return NewStorageError("memory", "store", fmt.Errorf("duplicate record ID %s", record.ID))
	}
	s.records[record.ID] = copyRecord(record)
	return nil
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyRecord(record), nil
}

// List returns copies of the matching records.
func (s *MemoryStorage) List(ctx context.Context, query *Query) ([]*Record, error) {
	if query == nil {
		query = &Query{}
	}
	s.mu.RLock()
	matched := s.match(query)
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *Record) int {
		if c := a.RecordedAt.Compare(b.RecordedAt); c != 0 {
			if query.OldestFirst {
				return c
			}
			return -c
		}
		if query.OldestFirst {
			return strings.Compare(a.ID, b.ID)
		}
		return strings.Compare(b.ID, a.ID)
	})

	start := min(query.Offset, len(matched))
	end := len(matched)
	if query.Limit > 0 {
		end = min(start+query.Limit, len(matched))
	}

	records := make([]*Record, 0, end-start)
	for _, r := range matched[start:end] {
		records = append(records, copyRecord(r))
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.match(query))), nil
}

// Delete removes the matching records.
func (s *MemoryStorage) Delete(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(query)
	for _, r := range matched {
		delete(s.records, r.ID)
	}
	return int64(len(matched)), nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}

// match must be called with the lock held.
func (s *MemoryStorage) match(query *Query) []*Record {
	var matched []*Record
	for _, r := range s.records {
		if matches(r, query) {
			matched = append(matched, r)
		}
	}
	return matched
}

func matches(r *Record, q *Query) bool {
	if len(q.IDs) > 0 && !slices.Contains(q.IDs, r.ID) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.SubjectID != "" && r.SubjectID != q.SubjectID {
		return false
	}
	if q.Level != "" && r.Level != q.Level {
		return false
	}
	if q.After != nil && r.RecordedAt.Before(*q.After) {
		return false
	}
	if q.Before != nil && !r.RecordedAt.Before(*q.Before) {
		return false
	}
	return true
}

func copyRecord(r *Record) *Record {
	c := *r
	c.Payload = slices.Clone(r.Payload)
	return &c
}
