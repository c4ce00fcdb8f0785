package status

import (
	"context"
	"sync"

	"newsreader/internal/entity"
)

// MemoryStore is a mutex-guarded map with the same transition rules as
// the Redis store. It backs tests and single-process setups; it does
// not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]entity.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]entity.Record)}
}

func (s *MemoryStore) Create(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[jobID]; ok {
		return ErrExists
	}
	s.records[jobID] = entity.Record{State: entity.StateQueued}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[jobID]
	if !ok {
		return entity.Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Transition(_ context.Context, jobID string, rec entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *entity.Record
	if r, ok := s.records[jobID]; ok {
		cur = &r
	}
	write, err := decide(cur, rec)
	if err != nil {
		return err
	}
	if write {
		s.records[jobID] = rec
	}
	return nil
}
