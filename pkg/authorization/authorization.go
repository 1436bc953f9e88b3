// Package authorization holds the Role/Permit bookkeeping the Router (C3)
// reads through its MembershipView port (spec §3 Role, Permit; §4.3).
package authorization

import (
	"sync"
	"time"

	"github.com/accordant-systems/accord/pkg/models"
)

// Store is an in-memory RoleBinding/Permit book, the single-process
// reference implementation of router.MembershipView — the same role this
// package's sibling memstore.go files play for pkg/journal, pkg/threshold,
// and pkg/attention.
type Store struct {
	mu       sync.Mutex
	bindings map[models.WorldlineId][]models.RoleBinding
	permits  map[models.WorldlineId][]*models.Permit
	members  map[models.WorldlineId]bool
}

func NewStore() *Store {
	return &Store{
		bindings: make(map[models.WorldlineId][]models.RoleBinding),
		permits:  make(map[models.WorldlineId][]*models.Permit),
		members:  make(map[models.WorldlineId]bool),
	}
}

// Bind grants resonator an active role binding.
func (s *Store) Bind(resonator models.WorldlineId, role models.RoleId, grantedBy models.WorldlineId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[resonator] = append(s.bindings[resonator], models.RoleBinding{
		Resonator: resonator,
		Role:      role,
		GrantedBy: grantedBy,
		GrantedAt: time.Now(),
		Active:    true,
	})
	s.members[resonator] = true
}

// Unbind deactivates every binding resonator holds for role.
func (s *Store) Unbind(resonator models.WorldlineId, role models.RoleId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.bindings[resonator] {
		if b.Role == role {
			s.bindings[resonator][i].Active = false
		}
	}
}

// Grant issues a live permit.
func (s *Store) Grant(p *models.Permit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permits[p.Grantee] = append(s.permits[p.Grantee], p)
}

// RoleMembers implements router.MembershipView: resonators with an active
// binding to role that are also present in membership (spec §4.3 step 2:
// "resonators with an active binding to the requested role, filtered to
// the collective's membership set"). An empty membership applies no
// filter: every resonator with an active binding is returned.
func (s *Store) RoleMembers(role models.RoleId, membership []models.WorldlineId) []models.WorldlineId {
	s.mu.Lock()
	defer s.mu.Unlock()

	inMembership := make(map[models.WorldlineId]bool, len(membership))
	for _, w := range membership {
		inMembership[w] = true
	}

	var out []models.WorldlineId
	for resonator, bindings := range s.bindings {
		if len(membership) > 0 && !inMembership[resonator] {
			continue
		}
		for _, b := range bindings {
			if b.Role == role && b.Active {
				out = append(out, resonator)
				break
			}
		}
	}
	return out
}

// Permits implements router.MembershipView: the live, usable permits w
// holds for capability.
func (s *Store) Permits(w models.WorldlineId, capability models.CapabilityId) []models.Permit {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var out []models.Permit
	for _, p := range s.permits[w] {
		if p.Capability == capability && p.Usable(now) {
			out = append(out, *p)
		}
	}
	return out
}
