package chunkstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps chunks in a map keyed by id. Used in tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]TextChunk
}

var _ Store = (*MemoryStore)(nil)

func NewMemory() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]TextChunk)}
}

func (s *MemoryStore) Put(ctx context.Context, chunk TextChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.chunks[chunk.ID]; ok {
		// Upsert semantics: content and embedding change, creation time does not.
		chunk.CreatedAt = existing.CreatedAt
	}
	s.chunks[chunk.ID] = chunk
	return nil
}

func (s *MemoryStore) ListByBot(ctx context.Context, botID string) ([]TextChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TextChunk
	for _, c := range s.chunks {
		if c.BotID == botID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Len reports the number of stored chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
