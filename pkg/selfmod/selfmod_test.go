package selfmod

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accordant-systems/accord/pkg/attention"
	"github.com/accordant-systems/accord/pkg/config"
	"github.com/accordant-systems/accord/pkg/gate"
	"github.com/accordant-systems/accord/pkg/graph"
	"github.com/accordant-systems/accord/pkg/identity"
	"github.com/accordant-systems/accord/pkg/journal"
	"github.com/accordant-systems/accord/pkg/models"
	"github.com/accordant-systems/accord/pkg/router"
	"github.com/accordant-systems/accord/pkg/threshold"
)

type openMembership struct{}

func (openMembership) RoleMembers(models.RoleId, []models.WorldlineId) []models.WorldlineId {
	return []models.WorldlineId{"wl-a"}
}

func (openMembership) Permits(models.WorldlineId, models.CapabilityId) []models.Permit {
	return []models.Permit{{ID: "permit-1", Capability: "CAP-GOVERN", Grantee: "wl-a"}}
}

func testExtension(t *testing.T, limits map[models.SelfModTier]TierLimit) *Extension {
	t.Helper()
	caps := config.NewCapabilityRegistry()
	caps.Add(&config.CapabilityConfig{ID: "CAP-GOVERN", ActionType: config.ActionGovern})
	roles := config.NewRoleRegistry()
	roles.Add(&config.RoleConfig{ID: "governor", Capabilities: []string{"CAP-GOVERN"}})

	cfg := &config.Config{
		Defaults:           &config.Defaults{MinIntentConfidence: 0, BlockThreshold: 80, ReviewThreshold: 90},
		PolicyRegistry:     config.NewPolicyRegistry(),
		RoleRegistry:       roles,
		CapabilityRegistry: caps,
		RecoveryRegistry:   config.NewRecoveryProfileRegistry(),
	}

	reg := identity.NewMemoryRegistry()
	require.NoError(t, reg.Register(models.WorldlineRecord{ID: "wl-a", Material: models.IdentityMaterial{Kind: models.MaterialPublicKey, Bytes: []byte("k")}}))

	r := router.New(cfg, openMembership{})
	g := graph.New(graph.NewMemoryStore())
	j := journal.New(journal.NewMemoryStore())
	th := threshold.New(threshold.NewMemoryStore(), j)
	at := attention.New(attention.NewMemoryBudgetStore(), attention.NewMemoryCouplingStore())

	gt := gate.New(cfg, reg, g, r, th, at, j, nil)
	return New(gt, g, limits)
}

func baseProposal() models.SelfModProposal {
	return models.SelfModProposal{
		ID:                  "prop-1",
		Declarer:            "wl-a",
		Tier:                models.TierT0,
		AffectedPaths:       []string{"config/timeout.yaml"},
		AffectedComponents:  1,
		CodeChanges:         1,
		Tests:               1,
		RollbackSteps:       1,
		RollbackMaxDuration: time.Minute,
		DeployMaxDuration:   time.Hour,
		Confidence:          0.9,
		ObservationWindow:   2 * time.Hour,
	}
}

func TestSubmitDeniesIncompleteProposal(t *testing.T) {
	ext := testExtension(t, nil)
	p := baseProposal()
	p.Tests = 0

	result := ext.Submit(p)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Equal(t, models.ReasonSelfModViolation, result.Card.DeniedReason)
	assert.Contains(t, result.Card.Reason, "ProposalIncomplete")
}

func TestSubmitDeniesRollbackNotViable(t *testing.T) {
	ext := testExtension(t, nil)
	p := baseProposal()
	p.RollbackMaxDuration = 2 * time.Hour
	p.DeployMaxDuration = time.Hour

	result := ext.Submit(p)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Contains(t, result.Card.Reason, "RollbackNotViable")
}

func TestSubmitDeniesSafetyCriticalPath(t *testing.T) {
	ext := testExtension(t, nil)
	p := baseProposal()
	p.AffectedPaths = []string{"src/emergency_handler.rs"}

	result := ext.Submit(p)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Contains(t, result.Card.Reason, "SafetyPreservationViolation")
}

func TestSubmitDeniesGateIntegrityPath(t *testing.T) {
	ext := testExtension(t, nil)
	p := baseProposal()
	p.Tier = models.TierT3
	p.AffectedPaths = []string{"src/commitment_gate.rs"}
	p.Confidence = 0.95
	p.ObservationWindow = 72 * time.Hour

	result := ext.Submit(p)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Contains(t, result.Card.Reason, "GateIntegrityViolation")
}

func TestSubmitDeniesScopeOutOfBounds(t *testing.T) {
	ext := testExtension(t, nil)
	p := baseProposal()
	p.AffectedComponents = 11

	result := ext.Submit(p)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Contains(t, result.Card.Reason, "ScopeOutOfBounds")
}

func TestSubmitDeniesBelowTierConfidence(t *testing.T) {
	ext := testExtension(t, nil)
	p := baseProposal()
	p.Confidence = 0.5

	result := ext.Submit(p)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Equal(t, models.ReasonSelfModViolation, result.Card.DeniedReason)
}

func TestSubmitDeniesBelowTierObservationWindow(t *testing.T) {
	ext := testExtension(t, nil)
	p := baseProposal()
	p.ObservationWindow = time.Minute

	result := ext.Submit(p)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
}

func TestSubmitDeniesOnRateLimitExhaustion(t *testing.T) {
	ext := testExtension(t, map[models.SelfModTier]TierLimit{models.TierT0: {PerHour: 1, Burst: 1}})

	first := ext.Submit(baseProposal())
	require.NotEqual(t, models.ReasonRateLimited, first.Card.DeniedReason)

	second := ext.Submit(baseProposal())
	require.Equal(t, models.DecisionDenied, second.Card.Decision)
	assert.Equal(t, models.ReasonRateLimited, second.Card.DeniedReason)
}

func TestDeploymentLifecycleHappyPath(t *testing.T) {
	tracker := NewDeploymentTracker(0.05)
	rec := tracker.Begin("prop-1", true)
	require.Equal(t, models.PhaseValidating, rec.Phase)

	_, err := tracker.Advance("prop-1", 0.05, map[string]float64{"latency_ms": 100})
	require.NoError(t, err)

	_, regressed, err := tracker.Monitor("prop-1", time.Minute, map[string]float64{"latency_ms": 102})
	require.NoError(t, err)
	assert.False(t, regressed)

	promoted, err := tracker.Promote("prop-1", 1.0)
	require.NoError(t, err)
	assert.Equal(t, models.PhasePromoting, promoted.Phase)

	done, err := tracker.Complete("prop-1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseComplete, done.Phase)
}

func TestDeploymentAutoRollsBackOnRegression(t *testing.T) {
	tracker := NewDeploymentTracker(0.05)
	tracker.Begin("prop-2", true)
	_, err := tracker.Advance("prop-2", 0.1, map[string]float64{"success_rate": 0.99})
	require.NoError(t, err)

	rec, regressed, err := tracker.Monitor("prop-2", time.Minute, map[string]float64{"success_rate": 0.80})
	require.NoError(t, err)
	assert.True(t, regressed)
	assert.Equal(t, models.PhaseRollingBack, rec.Phase)
}
