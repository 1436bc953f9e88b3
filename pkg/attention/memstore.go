package attention

import (
	"sync"

	"github.com/accordant-systems/accord/pkg/models"
)

type MemoryBudgetStore struct {
	mu   sync.RWMutex
	data map[models.WorldlineId]models.AttentionBudget
}

func NewMemoryBudgetStore() *MemoryBudgetStore {
	return &MemoryBudgetStore{data: make(map[models.WorldlineId]models.AttentionBudget)}
}

func (s *MemoryBudgetStore) Get(w models.WorldlineId) (models.AttentionBudget, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[w]
	return b, ok, nil
}

func (s *MemoryBudgetStore) Put(b models.AttentionBudget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[b.Resonator] = b
	return nil
}

type MemoryCouplingStore struct {
	mu   sync.RWMutex
	data map[models.CouplingKey]models.CouplingMetrics
}

func NewMemoryCouplingStore() *MemoryCouplingStore {
	return &MemoryCouplingStore{data: make(map[models.CouplingKey]models.CouplingMetrics)}
}

func (s *MemoryCouplingStore) Get(k models.CouplingKey) (models.CouplingMetrics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.data[k]
	return m, ok, nil
}

func (s *MemoryCouplingStore) Put(m models.CouplingMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[m.Key()] = m
	return nil
}

func (s *MemoryCouplingStore) ByTarget(target models.WorldlineId) ([]models.CouplingMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CouplingMetrics
	for _, m := range s.data {
		if m.Target == target {
			out = append(out, m)
		}
	}
	return out, nil
}
