package bots

import (
	"context"
	"sync"
)

// MemoryStore is a fixed set of bot ids. Used in tests and local runs.
type MemoryStore struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

var _ Store = (*MemoryStore)(nil)

func NewMemory(ids ...string) *MemoryStore {
	s := &MemoryStore{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *MemoryStore) Add(botID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[botID] = struct{}{}
}

func (s *MemoryStore) Exists(ctx context.Context, botID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[botID]
	return ok, nil
}
