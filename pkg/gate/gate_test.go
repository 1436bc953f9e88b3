package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accordant-systems/accord/pkg/attention"
	"github.com/accordant-systems/accord/pkg/config"
	"github.com/accordant-systems/accord/pkg/graph"
	"github.com/accordant-systems/accord/pkg/identity"
	"github.com/accordant-systems/accord/pkg/journal"
	"github.com/accordant-systems/accord/pkg/models"
	"github.com/accordant-systems/accord/pkg/router"
	"github.com/accordant-systems/accord/pkg/threshold"
)

type fakeMembership struct {
	members map[models.RoleId][]models.WorldlineId
	permits map[models.WorldlineId][]models.Permit
}

func (f *fakeMembership) RoleMembers(role models.RoleId, _ []models.WorldlineId) []models.WorldlineId {
	return f.members[role]
}

func (f *fakeMembership) Permits(w models.WorldlineId, _ models.CapabilityId) []models.Permit {
	return f.permits[w]
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	caps := config.NewCapabilityRegistry()
	caps.Add(&config.CapabilityConfig{ID: "CAP-EXECUTE", ActionType: config.ActionExecute})

	roles := config.NewRoleRegistry()
	roles.Add(&config.RoleConfig{ID: "executor", Capabilities: []string{"CAP-EXECUTE"}})

	return &config.Config{
		Defaults:           &config.Defaults{MinIntentConfidence: 0.5, BlockThreshold: 80, ReviewThreshold: 50},
		PolicyRegistry:     config.NewPolicyRegistry(),
		RoleRegistry:       roles,
		CapabilityRegistry: caps,
		RecoveryRegistry:   config.NewRecoveryProfileRegistry(),
	}
}

// testGate wires a full Gate against fresh in-memory backends for every
// upstream component, with declarer pre-registered, bound to the
// "executor" role, and holding a permit covering CAP-EXECUTE on the
// "payments" domain.
func testGate(t *testing.T, cfg *config.Config, declarer models.WorldlineId, risk RiskAssessor) (*Gate, *graph.Graph, identity.Registry) {
	t.Helper()
	reg := identity.NewMemoryRegistry()
	require.NoError(t, reg.Register(models.WorldlineRecord{ID: declarer, Material: models.IdentityMaterial{Kind: models.MaterialPublicKey, Bytes: []byte("test-key")}}))

	view := &fakeMembership{
		members: map[models.RoleId][]models.WorldlineId{"executor": {declarer}},
		permits: map[models.WorldlineId][]models.Permit{
			declarer: {{ID: "permit-1", Capability: "CAP-EXECUTE", Grantee: declarer}},
		},
	}
	r := router.New(cfg, view)
	g := graph.New(graph.NewMemoryStore())
	j := journal.New(journal.NewMemoryStore())
	th := threshold.New(threshold.NewMemoryStore(), j)
	at := attention.New(attention.NewMemoryBudgetStore(), attention.NewMemoryCouplingStore())

	gate := New(cfg, reg, g, r, th, at, j, risk)
	return gate, g, reg
}

// seedIntent appends a root Intent node for declarer so a
// CommitmentDeclaration has a real intent_reference to extend, matching
// the Context Graph's non-Intent-requires-parent invariant (spec §4.1).
func seedIntent(t *testing.T, g *graph.Graph, declarer models.WorldlineId) models.ContentHash {
	t.Helper()
	id, err := g.Append(declarer, models.NodeContent{
		Kind:   models.NodeIntent,
		Intent: &models.IntentContent{Description: "declared intent", Confidence: 0.9},
	}, nil, time.Now(), models.TierT0)
	require.NoError(t, err)
	return id
}

func validDeclaration(declarer models.WorldlineId, intentRef models.ContentHash) models.CommitmentDeclaration {
	return models.CommitmentDeclaration{
		Declarer:         declarer,
		Scope:            models.CommitmentScope{Domain: "payments"},
		IntentReference:  intentRef,
		IntentConfidence: 0.9,
		CapabilityRefs:   []models.CapabilityId{"CAP-EXECUTE"},
		TraceID:          "trace-1",
	}
}

func TestSubmitApprovesValidDeclaration(t *testing.T) {
	cfg := testConfig(t)
	g, graphStore, _ := testGate(t, cfg, "wl-a", nil)
	intent := seedIntent(t, graphStore, "wl-a")

	result := g.Submit(validDeclaration("wl-a", intent))

	require.Equal(t, models.DecisionApproved, result.Card.Decision)
	assert.False(t, result.CommitmentID.IsZero())
}

func TestSubmitDeduplicatesByIntentReference(t *testing.T) {
	cfg := testConfig(t)
	g, graphStore, _ := testGate(t, cfg, "wl-a", nil)
	intent := seedIntent(t, graphStore, "wl-a")

	decl := validDeclaration("wl-a", intent)

	first := g.Submit(decl)
	second := g.Submit(decl)

	assert.Equal(t, first.CommitmentID, second.CommitmentID)
}

func TestSubmitRejectsBelowMinConfidence(t *testing.T) {
	cfg := testConfig(t)
	g, graphStore, _ := testGate(t, cfg, "wl-a", nil)
	intent := seedIntent(t, graphStore, "wl-a")

	decl := validDeclaration("wl-a", intent)
	decl.IntentConfidence = 0.1

	result := g.Submit(decl)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Equal(t, models.ReasonInvalidDeclaration, result.Card.DeniedReason)
}

func TestSubmitRejectsUnknownIdentity(t *testing.T) {
	cfg := testConfig(t)
	g, graphStore, _ := testGate(t, cfg, "wl-a", nil)
	intent := seedIntent(t, graphStore, "wl-a")

	decl := validDeclaration("wl-ghost", intent)

	result := g.Submit(decl)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Equal(t, models.ReasonUnknownIdentity, result.Card.DeniedReason)
}

func TestSubmitRejectsRevokedIdentity(t *testing.T) {
	cfg := testConfig(t)
	g, graphStore, reg := testGate(t, cfg, "wl-a", nil)
	intent := seedIntent(t, graphStore, "wl-a")
	require.NoError(t, reg.Revoke("wl-a"))

	result := g.Submit(validDeclaration("wl-a", intent))

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Equal(t, models.ReasonUnknownIdentity, result.Card.DeniedReason)
}

func TestSubmitRejectsMissingCapability(t *testing.T) {
	cfg := testConfig(t)
	g, graphStore, _ := testGate(t, cfg, "wl-a", nil)
	intent := seedIntent(t, graphStore, "wl-a")

	decl := validDeclaration("wl-a", intent)
	decl.CapabilityRefs = []models.CapabilityId{"CAP-GOVERN"}

	result := g.Submit(decl)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Equal(t, models.ReasonCapabilityMissing, result.Card.DeniedReason)
}

func TestSubmitConstitutionalPolicyDeniesMatchingScope(t *testing.T) {
	cfg := testConfig(t)
	cfg.PolicyRegistry.Add(&config.PolicyConfig{
		ID: "P-CONST-SAFETY", Condition: "touches_safety_critical_path",
		Action: config.PolicyDeny, Constitutional: true,
	})
	g, graphStore, _ := testGate(t, cfg, "wl-a", nil)
	intent := seedIntent(t, graphStore, "wl-a")

	decl := validDeclaration("wl-a", intent)
	decl.Scope.Targets = []string{"emergency-rollback-handler"}

	result := g.Submit(decl)

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Equal(t, models.ReasonPolicyDeny, result.Card.DeniedReason)
}

func TestSubmitConstitutionalPolicyIgnoresUnrelatedScope(t *testing.T) {
	cfg := testConfig(t)
	cfg.PolicyRegistry.Add(&config.PolicyConfig{
		ID: "P-CONST-SAFETY", Condition: "touches_safety_critical_path",
		Action: config.PolicyDeny, Constitutional: true,
	})
	g, graphStore, _ := testGate(t, cfg, "wl-a", nil)
	intent := seedIntent(t, graphStore, "wl-a")

	result := g.Submit(validDeclaration("wl-a", intent))

	assert.Equal(t, models.DecisionApproved, result.Card.Decision)
}

type fixedRisk struct {
	report models.RiskReport
}

func (f fixedRisk) Assess(models.CommitmentDeclaration, []models.CoercionIndicator) models.RiskReport {
	return f.report
}

func TestSubmitDeniesOnRiskBlockThreshold(t *testing.T) {
	cfg := testConfig(t)
	g, graphStore, _ := testGate(t, cfg, "wl-a", fixedRisk{report: models.RiskReport{Score: 95}})
	intent := seedIntent(t, graphStore, "wl-a")

	result := g.Submit(validDeclaration("wl-a", intent))

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Equal(t, models.ReasonRiskBlock, result.Card.DeniedReason)
}

func TestSubmitPendingReviewOnRiskReviewThreshold(t *testing.T) {
	cfg := testConfig(t)
	g, graphStore, _ := testGate(t, cfg, "wl-a", fixedRisk{report: models.RiskReport{Score: 60}})
	intent := seedIntent(t, graphStore, "wl-a")

	result := g.Submit(validDeclaration("wl-a", intent))

	require.Equal(t, models.DecisionPendingReview, result.Card.Decision)
	assert.Contains(t, result.Card.ReviewRequirements, models.ReviewHuman)
}

func TestSubmitDeniesOnSevereCoercionFinding(t *testing.T) {
	cfg := testConfig(t)
	risk := fixedRisk{report: models.RiskReport{
		Score: 10,
		CoercionFindings: []models.CoercionIndicator{
			{Type: models.IndicatorAttentionExploitation, Recommendation: models.RecommendSeverCoupling, Description: "sustained over-allocation"},
		},
	}}
	g, graphStore, _ := testGate(t, cfg, "wl-a", risk)
	intent := seedIntent(t, graphStore, "wl-a")

	result := g.Submit(validDeclaration("wl-a", intent))

	require.Equal(t, models.DecisionDenied, result.Card.Decision)
	assert.Equal(t, models.ReasonCoercion, result.Card.DeniedReason)
}

func TestSubmitPendingReviewAwaitingCoSignature(t *testing.T) {
	cfg := testConfig(t)
	g, graphStore, _ := testGate(t, cfg, "wl-a", nil)
	intent := seedIntent(t, graphStore, "wl-a")

	decl := validDeclaration("wl-a", intent)
	deadline := time.Now().Add(time.Hour)
	decl.ThresholdPolicy = &models.ThresholdPolicy{Kind: models.PolicySingleSigner}
	decl.Deadline = &deadline

	result := g.Submit(decl)

	require.Equal(t, models.DecisionPendingReview, result.Card.Decision)
	assert.Contains(t, result.Card.ReviewRequirements, models.ReviewThresholdSignatures)
}
