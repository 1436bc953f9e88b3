package graph

import (
	"sync"

	"github.com/accordant-systems/accord/pkg/models"
)

// MemoryStore is an in-process Store. It tracks per-worldline heads as the
// set of node ids that no stored node currently lists as a parent.
type MemoryStore struct {
	mu       sync.RWMutex
	nodes    map[models.ContentHash]models.WllNode
	byWl     map[models.WorldlineId][]models.ContentHash
	heads    map[models.WorldlineId]map[models.ContentHash]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[models.ContentHash]models.WllNode),
		byWl:  make(map[models.WorldlineId][]models.ContentHash),
		heads: make(map[models.WorldlineId]map[models.ContentHash]bool),
	}
}

func (s *MemoryStore) Put(n models.WllNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	s.byWl[n.WorldlineID] = append(s.byWl[n.WorldlineID], n.ID)
	return nil
}

func (s *MemoryStore) Get(id models.ContentHash) (models.WllNode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok, nil
}

func (s *MemoryStore) ByWorldline(w models.WorldlineId) ([]models.WllNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byWl[w]
	out := make([]models.WllNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.nodes[id])
	}
	return out, nil
}

func (s *MemoryStore) Heads(w models.WorldlineId) ([]models.ContentHash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.heads[w]
	out := make([]models.ContentHash, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out, nil
}

// SetHead adds id to worldline w's head set and removes its parents from
// that set, since they are no longer leaves.
func (s *MemoryStore) SetHead(w models.WorldlineId, id models.ContentHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heads[w] == nil {
		s.heads[w] = make(map[models.ContentHash]bool)
	}
	n := s.nodes[id]
	for _, p := range n.ParentIDs {
		delete(s.heads[w], p)
	}
	s.heads[w][id] = true
	return nil
}
