/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: memory.go
Description: Bounded in-memory scan history, the default when no database is configured.
*/

package history

import (
	"context"
	"sync"

	"github.com/kleascm/fvm/pkg/apperr"
)

// DefaultCapacity bounds the in-memory history
const DefaultCapacity = 200

// MemoryStore keeps the most recent records and evicts the oldest
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	records  map[string]*Record
}

// NewMemoryStore creates a store. capacity <= 0 uses DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		records:  make(map[string]*Record),
	}
}

func (s *MemoryStore) Save(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.records[r.ID] = r

	for len(s.order) > s.capacity {
		delete(s.records, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, apperr.New(apperr.ScanNotFound, map[string]interface{}{"id": id})
	}
	return r, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]*Record, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[s.order[i]])
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
