// Package router implements the Role/Capability/Permit Router, RCPG (C3):
// resolving which Resonators are eligible to perform a requested action and
// under which role/capability pair (spec §4.3).
package router

import (
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/accordant-systems/accord/pkg/config"
	"github.com/accordant-systems/accord/pkg/models"
)

// MembershipView answers role-binding and permit-scope questions against
// whatever identity/authorization store backs the runtime.
type MembershipView interface {
	// RoleMembers returns worldlines with an active binding to role, that
	// are active members of the given membership set.
	RoleMembers(role models.RoleId, membership []models.WorldlineId) []models.WorldlineId
	// Permits returns the active permits a worldline holds for a capability.
	Permits(w models.WorldlineId, capability models.CapabilityId) []models.Permit
}

const snapshotTTL = 3 * time.Second

// Router is the C3 component. RoleMembers/Permits lookups are cached for a
// few seconds the way the teacher caches its MCP tool-list responses in
// pkg/mcp — short enough that a revoked binding or permit is honored
// quickly, long enough to spare the backing store from a hot path.
type Router struct {
	cfg   *config.Config
	view  MembershipView
	cache *gocache.Cache
}

func New(cfg *config.Config, view MembershipView) *Router {
	return &Router{
		cfg:   cfg,
		view:  view,
		cache: gocache.New(snapshotTTL, 2*snapshotTTL),
	}
}

func (r *Router) roleMembers(role models.RoleId, membership []models.WorldlineId) []models.WorldlineId {
	key := fmt.Sprintf("role:%s:%v", role, membership)
	if v, ok := r.cache.Get(key); ok {
		return v.([]models.WorldlineId)
	}
	members := r.view.RoleMembers(role, membership)
	r.cache.SetDefault(key, members)
	return members
}

func (r *Router) permits(w models.WorldlineId, capability models.CapabilityId) []models.Permit {
	key := fmt.Sprintf("permits:%s:%s", w, capability)
	if v, ok := r.cache.Get(key); ok {
		return v.([]models.Permit)
	}
	permits := r.view.Permits(w, capability)
	r.cache.SetDefault(key, permits)
	return permits
}

// Route implements the seven-step algorithm of spec §4.3.
func (r *Router) Route(req models.ActionRequest, membership []models.WorldlineId) (models.RouteResult, *models.RuntimeError) {
	type candidate struct {
		role models.RoleId
		cap  models.CapabilityId
	}

	// Step 1: capabilities whose action_type matches.
	caps := r.cfg.CapabilityRegistry.ByActionType(config.ActionKind(req.ActionType))
	if len(caps) == 0 {
		return models.RouteResult{}, models.NewRuntimeError(models.KindPolicyRejection, "no capability matches the requested action type")
	}

	// Step 2: roles containing each matching capability.
	var candidates []candidate
	for _, c := range caps {
		for _, role := range r.cfg.RoleRegistry.RolesWithCapability(c.ID) {
			candidates = append(candidates, candidate{role: models.RoleId(role.ID), cap: models.CapabilityId(c.ID)})
		}
	}

	// Step 6's tie-break ordering is applied up front so the first match
	// found below is already the correct winner.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].role != candidates[j].role {
			return candidates[i].role < candidates[j].role
		}
		return candidates[i].cap < candidates[j].cap
	})

	var roleOnly *candidate
	var roleOnlyEligible []models.WorldlineId

	for _, cand := range candidates {
		// Step 3: active members of membership bound to the role.
		members := r.roleMembers(cand.role, membership)
		if len(members) == 0 {
			continue
		}

		// Step 4: filter by active permits covering the request scope.
		var eligible []models.WorldlineId
		now := time.Now()
		for _, w := range members {
			for _, permit := range r.permits(w, cand.cap) {
				if !permit.Usable(now) {
					continue
				}
				if permit.Covers(models.ScopeRequest{Domain: req.Domain, Target: req.Target, Operation: req.Operation}) {
					eligible = append(eligible, w)
					break
				}
			}
		}

		if len(eligible) > 0 {
			// Step 5: first non-empty (role, capability) pair wins.
			return models.RouteResult{
				Eligible:     eligible,
				CoveringRole: cand.role,
				CapabilityID: cand.cap,
			}, nil
		}

		if roleOnly == nil {
			c := cand
			roleOnly = &c
			roleOnlyEligible = members
		}
	}

	// Step 7: role-only fallback, gated by policy default.
	if roleOnly != nil {
		if !r.cfg.Defaults.RoleOnlyFallbackAllowed {
			return models.RouteResult{}, models.NewRuntimeError(models.KindPolicyRejection, "eligible role found but no covering permit, and role-only fallback is disabled")
		}
		return models.RouteResult{
			Eligible:     roleOnlyEligible,
			CoveringRole: roleOnly.role,
			CapabilityID: roleOnly.cap,
			RoleOnly:     true,
		}, nil
	}

	return models.RouteResult{}, models.NewRuntimeError(models.KindAuthorizationFailure, "no eligible resonator for this action")
}
