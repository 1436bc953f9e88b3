package journal

import (
	"sync"

	"github.com/accordant-systems/accord/pkg/models"
)

// MemoryStore is an in-process Store backed by an append-only slice,
// guarded the same way pkg/graph and pkg/threshold guard their in-memory
// backends.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.JournalEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(entry models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) Latest() (models.JournalEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return models.JournalEntry{}, false, nil
	}
	return s.entries[len(s.entries)-1], true, nil
}

func (s *MemoryStore) List(from, to uint64) ([]models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.JournalEntry
	for _, e := range s.entries {
		if e.Sequence >= from && e.Sequence <= to {
			out = append(out, e)
		}
	}
	return out, nil
}
