package models

import "time"

// CapabilityId, RoleId, PermitId are opaque string identifiers matching the
// ids used in pkg/config's static definitions.
type (
	CapabilityId string
	RoleId       string
	PermitId     string
)

// RoleBinding ties a Resonator to a Role, granted by some authority
// (spec §3 Role: "Binding (resonator, role, granted_by) lives in a
// RoleRegistry"). A Resonator is "in a role" iff it has an active binding
// and is an active member of the collective's MembershipGraph — membership
// is modeled by the MembershipView interface in pkg/router.
type RoleBinding struct {
	Resonator  WorldlineId
	Role       RoleId
	GrantedBy  WorldlineId
	GrantedAt  time.Time
	Active     bool
}

// Scope describes the dimensions a Permit covers or a request targets
// (spec §3 Permit.scope). A "*" wildcard is represented as a nil/empty set
// on the Permit side; Covers treats nil as "match anything".
type Scope struct {
	Domains    []string
	Targets    []string // nil/empty means "*"
	Operations []string // nil/empty means "*"
}

// Permit is a live, scoped grant of a Capability to a Resonator
// (spec §3 Permit).
type Permit struct {
	ID          PermitId
	Capability  CapabilityId
	Grantee     WorldlineId
	Scope       Scope
	IssuedBy    WorldlineId
	ExpiresAt   *time.Time
	MaxUses     *int
	UsesSoFar   int
	Revoked     bool
}

// Usable reports whether the permit may still be exercised at instant now
// (spec §3: "not revoked, not past expires_at, uses_so_far < max_uses").
func (p *Permit) Usable(now time.Time) bool {
	if p.Revoked {
		return false
	}
	if p.ExpiresAt != nil && !now.Before(*p.ExpiresAt) {
		return false
	}
	if p.MaxUses != nil && p.UsesSoFar >= *p.MaxUses {
		return false
	}
	return true
}

// Covers reports whether p's scope covers every dimension of req
// (spec §4.3 step 4: "each permit dimension is '*' or contains the request
// dimension").
func (p *Permit) Covers(req ScopeRequest) bool {
	return dimensionCovers(p.Scope.Domains, req.Domain) &&
		dimensionCovers(p.Scope.Targets, req.Target) &&
		dimensionCovers(p.Scope.Operations, req.Operation)
}

func dimensionCovers(allowed []string, want string) bool {
	if len(allowed) == 0 {
		return true // "*"
	}
	for _, a := range allowed {
		if a == "*" || a == want {
			return true
		}
	}
	return false
}

// ScopeRequest is the concrete (domain, target, operation) an action
// request names, checked against a Permit's Scope.
type ScopeRequest struct {
	Domain    string
	Target    string
	Operation string
}
