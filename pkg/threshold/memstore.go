package threshold

import (
	"sync"

	"github.com/accordant-systems/accord/pkg/models"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[models.ContentHash]models.ThresholdCommitment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[models.ContentHash]models.ThresholdCommitment)}
}

func (s *MemoryStore) Put(c models.ThresholdCommitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[c.ID] = c
	return nil
}

func (s *MemoryStore) Get(id models.ContentHash) (models.ThresholdCommitment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data[id]
	return c, ok, nil
}
