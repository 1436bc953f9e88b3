package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accordant-systems/accord/pkg/config"
	"github.com/accordant-systems/accord/pkg/models"
)

type fakeView struct {
	members map[models.RoleId][]models.WorldlineId
	permits map[models.WorldlineId][]models.Permit
}

func (f *fakeView) RoleMembers(role models.RoleId, membership []models.WorldlineId) []models.WorldlineId {
	return f.members[role]
}

func (f *fakeView) Permits(w models.WorldlineId, capability models.CapabilityId) []models.Permit {
	var out []models.Permit
	for _, p := range f.permits[w] {
		if p.Capability == capability {
			out = append(out, p)
		}
	}
	return out
}

func baseConfig() *config.Config {
	cfg := &config.Config{
		Defaults:           &config.Defaults{},
		PolicyRegistry:     config.NewPolicyRegistry(),
		RoleRegistry:       config.NewRoleRegistry(),
		CapabilityRegistry: config.NewCapabilityRegistry(),
	}
	cfg.CapabilityRegistry.Add(&config.CapabilityConfig{ID: "CAP-EXECUTE", ActionType: config.ActionExecute})
	cfg.RoleRegistry.Add(&config.RoleConfig{ID: "operator", Capabilities: []string{"CAP-EXECUTE"}})
	return cfg
}

func TestRouteHappyPath(t *testing.T) {
	cfg := baseConfig()
	view := &fakeView{
		members: map[models.RoleId][]models.WorldlineId{"operator": {"wl-a", "wl-b"}},
		permits: map[models.WorldlineId][]models.Permit{
			"wl-a": {{ID: "p1", Capability: "CAP-EXECUTE", Grantee: "wl-a"}},
		},
	}
	r := New(cfg, view)

	res, err := r.Route(models.ActionRequest{ActionType: "Execute", Domain: "payments", Target: "acct-1", Operation: "transfer"}, []models.WorldlineId{"wl-a", "wl-b"})
	require.Nil(t, err)
	assert.Equal(t, []models.WorldlineId{"wl-a"}, res.Eligible)
	assert.Equal(t, models.RoleId("operator"), res.CoveringRole)
	assert.False(t, res.RoleOnly)
}

func TestRouteNoMatchingCapability(t *testing.T) {
	cfg := baseConfig()
	r := New(cfg, &fakeView{})
	_, err := r.Route(models.ActionRequest{ActionType: "Govern"}, nil)
	require.NotNil(t, err)
	assert.Equal(t, models.KindPolicyRejection, err.Kind)
}

func TestRouteRoleOnlyFallbackDisabledByDefault(t *testing.T) {
	cfg := baseConfig()
	view := &fakeView{members: map[models.RoleId][]models.WorldlineId{"operator": {"wl-a"}}}
	r := New(cfg, view)

	_, err := r.Route(models.ActionRequest{ActionType: "Execute"}, []models.WorldlineId{"wl-a"})
	require.NotNil(t, err)
	assert.Equal(t, models.KindPolicyRejection, err.Kind)
}

func TestRouteRoleOnlyFallbackWhenAllowed(t *testing.T) {
	cfg := baseConfig()
	cfg.Defaults.RoleOnlyFallbackAllowed = true
	view := &fakeView{members: map[models.RoleId][]models.WorldlineId{"operator": {"wl-a"}}}
	r := New(cfg, view)

	res, err := r.Route(models.ActionRequest{ActionType: "Execute"}, []models.WorldlineId{"wl-a"})
	require.Nil(t, err)
	assert.True(t, res.RoleOnly)
	assert.Equal(t, []models.WorldlineId{"wl-a"}, res.Eligible)
}

func TestRouteRevokedPermitExcluded(t *testing.T) {
	cfg := baseConfig()
	view := &fakeView{
		members: map[models.RoleId][]models.WorldlineId{"operator": {"wl-a"}},
		permits: map[models.WorldlineId][]models.Permit{
			"wl-a": {{ID: "p1", Capability: "CAP-EXECUTE", Revoked: true}},
		},
	}
	r := New(cfg, view)

	_, err := r.Route(models.ActionRequest{ActionType: "Execute"}, []models.WorldlineId{"wl-a"})
	require.NotNil(t, err)
	assert.Equal(t, models.KindPolicyRejection, err.Kind)
}
