package identity

import (
	"fmt"
	"sync"
	"time"

	"github.com/accordant-systems/accord/pkg/models"
)

// MemoryRegistry is an in-process Registry backed by a map, guarded by a
// RWMutex the way the teacher's pkg/session manager guards its session
// table.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[models.WorldlineId]models.WorldlineRecord
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{records: make(map[models.WorldlineId]models.WorldlineRecord)}
}

func (r *MemoryRegistry) Lookup(id models.WorldlineId) (models.WorldlineRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

func (r *MemoryRegistry) Register(rec models.WorldlineRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.ID]; exists {
		return fmt.Errorf("identity: worldline %s already registered", rec.ID)
	}
	rec.RegisteredAt = time.Now()
	rec.LastIncarnateAt = rec.RegisteredAt
	rec.Incarnation = 1
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryRegistry) Revoke(id models.WorldlineId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("identity: worldline %s not found", id)
	}
	rec.Revoked = true
	r.records[id] = rec
	return nil
}

// Reincarnate rebinds id to fresh identity material with an incremented
// incarnation counter (spec §3 "Identity... may re-incarnate"). A revoked
// worldline cannot be reincarnated; revocation is permanent.
func (r *MemoryRegistry) Reincarnate(id models.WorldlineId, material models.IdentityMaterial) (models.WorldlineRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return models.WorldlineRecord{}, fmt.Errorf("identity: worldline %s not found", id)
	}
	if rec.Revoked {
		return models.WorldlineRecord{}, fmt.Errorf("identity: worldline %s is revoked", id)
	}
	rec.Material = material
	rec.Incarnation++
	rec.LastIncarnateAt = time.Now()
	r.records[id] = rec
	return rec, nil
}
