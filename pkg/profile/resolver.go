package profile

import (
	"github.com/accordant-systems/accord/pkg/config"
	"github.com/accordant-systems/accord/pkg/identity"
	"github.com/accordant-systems/accord/pkg/models"
)

// Resolver looks up the RecoveryProfileConfig a registered worldline
// carries, composing the identity registry (which records the profile
// name each worldline was registered under) with the config-loaded
// RecoveryProfileRegistry. It implements attention.ProfileResolver.
type Resolver struct {
	identities identity.Registry
	profiles   *config.RecoveryProfileRegistry
}

func NewResolver(identities identity.Registry, profiles *config.RecoveryProfileRegistry) *Resolver {
	return &Resolver{identities: identities, profiles: profiles}
}

func (r *Resolver) Resolve(w models.WorldlineId) (*config.RecoveryProfileConfig, bool) {
	rec, ok := r.identities.Lookup(w)
	if !ok || rec.RecoveryProfile == "" {
		return nil, false
	}
	p, err := r.profiles.Get(rec.RecoveryProfile)
	if err != nil {
		return nil, false
	}
	return p, true
}
