package jobstatus

import (
	"context"
	"sync"

	"github.com/sehxxnee/botbuilder/internal/ingest"
	apperrors "github.com/sehxxnee/botbuilder/pkg/errors"
)

// MemoryStore keeps records in a map. Used in tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]ingest.StatusRecord
}

var _ Store = (*MemoryStore)(nil)

func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]ingest.StatusRecord)}
}

func (s *MemoryStore) Write(ctx context.Context, rec ingest.StatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.JobID] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (*ingest.StatusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[jobID]
	if !ok {
		return nil, apperrors.ErrJobNotFound
	}
	out := rec
	return &out, nil
}
