// Package gate implements the Commitment Gate Pipeline (C5): the fixed,
// ordered sequence of stages that adjudicate a CommitmentDeclaration into
// an AdjudicationResult (spec §4.5).
package gate

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	playground "github.com/go-playground/validator/v10"

	"github.com/accordant-systems/accord/pkg/attention"
	"github.com/accordant-systems/accord/pkg/config"
	"github.com/accordant-systems/accord/pkg/graph"
	"github.com/accordant-systems/accord/pkg/identity"
	"github.com/accordant-systems/accord/pkg/journal"
	"github.com/accordant-systems/accord/pkg/metrics"
	"github.com/accordant-systems/accord/pkg/models"
	"github.com/accordant-systems/accord/pkg/router"
	"github.com/accordant-systems/accord/pkg/threshold"
)

// RiskAssessor scores a declaration's risk, folding in the coercion
// findings from C2 (spec §4.5 stage 5). A separate interface keeps the
// scoring heuristics swappable without touching pipeline wiring.
type RiskAssessor interface {
	Assess(decl models.CommitmentDeclaration, coercion []models.CoercionIndicator) models.RiskReport
}

// Gate is the C5 component surface, wired to every upstream component it
// adjudicates against.
type Gate struct {
	cfg        *config.Config
	identities identity.Registry
	graph      *graph.Graph
	router     *router.Router
	threshold  *threshold.Engine
	attention  *attention.Allocator
	journal    *journal.Journal
	risk       RiskAssessor
	validate   *playground.Validate
	metrics    *metrics.Registry

	mu          sync.Mutex
	seenIntents map[string]models.AdjudicationResult // dedup key: intent_reference + declarer
}

// WithMetrics attaches the Prometheus collectors Submit records stage
// latency and decision counts against. Returns the Gate for chaining at
// construction time; a Gate with no metrics attached records nothing.
func (g *Gate) WithMetrics(m *metrics.Registry) *Gate {
	g.metrics = m
	return g
}

func New(cfg *config.Config, identities identity.Registry, g *graph.Graph, r *router.Router, th *threshold.Engine, at *attention.Allocator, j *journal.Journal, risk RiskAssessor) *Gate {
	return &Gate{
		cfg:         cfg,
		identities:  identities,
		graph:       g,
		router:      r,
		threshold:   th,
		attention:   at,
		journal:     j,
		risk:        risk,
		validate:    playground.New(),
		seenIntents: make(map[string]models.AdjudicationResult),
	}
}

func dedupKey(decl models.CommitmentDeclaration) string {
	return string(decl.Declarer) + "|" + decl.IntentReference.String()
}

// Submit runs the fixed seven-stage pipeline (spec §4.5). Any stage's
// internal error — as opposed to a decision — is surfaced as
// Denied(Internal) and nothing is recorded as a Commitment.
func (g *Gate) Submit(decl models.CommitmentDeclaration) models.AdjudicationResult {
	g.mu.Lock()
	key := dedupKey(decl)
	if !decl.IntentReference.IsZero() {
		if prior, ok := g.seenIntents[key]; ok {
			g.mu.Unlock()
			return prior
		}
	}
	g.mu.Unlock()

	result := g.runPipeline(decl)

	if !decl.IntentReference.IsZero() {
		g.mu.Lock()
		g.seenIntents[key] = result
		g.mu.Unlock()
	}
	return result
}

func (g *Gate) runPipeline(decl models.CommitmentDeclaration) (result models.AdjudicationResult) {
	defer func() {
		g.metrics.RecordGateDecision(string(result.Card.Decision))
	}()

	stageStart := time.Now()
	stage := func(name string) {
		g.metrics.ObserveGateStage(name, time.Since(stageStart))
		stageStart = time.Now()
	}

	// Stage 1: Declaration Validation.
	if rerr := g.validateDeclaration(decl); rerr != nil {
		stage("validation")
		return g.deny(decl, models.ReasonInvalidDeclaration, rerr.Message)
	}
	stage("validation")

	// Stage 2: Identity Binding.
	rec, ok := g.identities.Lookup(decl.Declarer)
	if !ok || rec.Revoked {
		stage("identity_binding")
		return g.deny(decl, models.ReasonUnknownIdentity, "declarer does not resolve to a registered, unrevoked worldline")
	}
	stage("identity_binding")

	// Stage 3: Capability Check.
	for _, capRef := range decl.CapabilityRefs {
		capCfg, err := g.cfg.CapabilityRegistry.Get(string(capRef))
		if err != nil {
			return g.deny(decl, models.ReasonCapabilityMissing, fmt.Sprintf("capability %s is not a recognized capability", capRef))
		}
		req := models.ActionRequest{ActionType: string(capCfg.ActionType), Domain: decl.Scope.Domain}
		res, rerr := g.router.Route(req, []models.WorldlineId{decl.Declarer})
		if rerr != nil || !containsEligible(res, decl.Declarer) {
			return g.deny(decl, models.ReasonCapabilityMissing, fmt.Sprintf("capability %s not currently granted to declarer", capRef))
		}
	}
	stage("capability_check")

	// Stage 4: Policy Evaluation — constitutional policies first and
	// non-overridable, then the rest in priority order.
	policies := g.orderedPolicies()
	var accumulatedConditions []models.Condition
	var requireApprovers []string
	for _, p := range policies {
		if !policyApplies(p, decl) {
			continue
		}
		switch p.Action {
		case config.PolicyApprove:
			if p.Constitutional {
				accumulatedConditions = append(accumulatedConditions, models.Condition{Kind: models.ConditionNotifyGovernance})
			}
			continue
		case config.PolicyDeny:
			res := g.deny(decl, models.ReasonPolicyDeny, fmt.Sprintf("policy %s denied", p.ID))
			res.Card.PolicyID = p.ID
			return res
		case config.PolicyRequireApproval:
			requireApprovers = append(requireApprovers, p.Approvers...)
		case config.PolicyHold:
			return models.AdjudicationResult{
				Card: models.PolicyDecisionCard{
					Decision:           models.DecisionPendingReview,
					ReviewRequirements: []models.ReviewRequirement{models.ReviewBackpressureHold},
					Reason:             fmt.Sprintf("policy %s placed a hold", p.ID),
					PolicyID:           p.ID,
					DecidedAt:          time.Now(),
				},
			}
		}
	}
	stage("policy_evaluation")

	// Stage 5: Risk Assessment.
	var coercion []models.CoercionIndicator
	if g.attention != nil {
		found, err := g.attention.AssertHealth(decl.Declarer)
		if err == nil {
			coercion = found
		}
	}
	var riskReport models.RiskReport
	if g.risk != nil {
		riskReport = g.risk.Assess(decl, coercion)
	}
	if riskReport.Score > g.cfg.Defaults.BlockThreshold && g.cfg.Defaults.BlockThreshold > 0 {
		return g.denyWithRisk(decl, models.ReasonRiskBlock, "risk score exceeds block threshold", riskReport)
	}
	if riskReport.Score > g.cfg.Defaults.ReviewThreshold && g.cfg.Defaults.ReviewThreshold > 0 {
		return models.AdjudicationResult{
			Card: models.PolicyDecisionCard{
				Decision:           models.DecisionPendingReview,
				ReviewRequirements: []models.ReviewRequirement{models.ReviewHuman},
				Reason:             "risk score exceeds review threshold",
				DecidedAt:          time.Now(),
			},
			Risk: &riskReport,
		}
	}
	for _, ci := range riskReport.CoercionFindings {
		if ci.Recommendation == models.RecommendSeverCoupling || ci.Recommendation == models.RecommendEmergencyDecouple {
			return g.denyWithRisk(decl, models.ReasonCoercion, ci.Description, riskReport)
		}
	}
	stage("risk_assessment")

	// Stage 6: Co-Signature.
	if decl.ThresholdPolicy != nil && g.threshold != nil {
		id, err := g.threshold.Create(fmt.Sprintf("commitment co-signature for %s", decl.Declarer), *decl.ThresholdPolicy, decl.Deadline, decl.Amount)
		if err != nil {
			return g.deny(decl, models.ReasonInternal, "failed to open threshold commitment")
		}
		return models.AdjudicationResult{
			Card: models.PolicyDecisionCard{
				Decision:           models.DecisionPendingReview,
				ReviewRequirements: []models.ReviewRequirement{models.ReviewThresholdSignatures},
				Reason:             fmt.Sprintf("awaiting co-signature on threshold commitment %s", id),
				DecidedAt:          time.Now(),
			},
			Risk: &riskReport,
		}
	}

	if len(requireApprovers) > 0 {
		return models.AdjudicationResult{
			Card: models.PolicyDecisionCard{
				Decision:           models.DecisionPendingReview,
				ReviewRequirements: []models.ReviewRequirement{models.ReviewHuman},
				Reason:             "policy requires manual approval",
				DecidedAt:          time.Now(),
			},
			Risk: &riskReport,
		}
	}
	stage("co_signature")

	// Stage 7: Final Decision.
	conditions := accumulatedConditions
	card := models.PolicyDecisionCard{
		Decision:   models.DecisionApproved,
		Conditions: conditions,
		Reason:     "approved",
		DecidedAt:  time.Now(),
	}

	commitmentID, err := g.appendCommitment(decl, card)
	if err != nil {
		return g.deny(decl, models.ReasonInternal, "failed to record commitment")
	}

	if g.journal != nil {
		_, _ = g.journal.Append(decl.Declarer, "gate_approved", true, "commitment approved", &commitmentID, map[string]string{"trace_id": decl.TraceID})
	}

	return models.AdjudicationResult{Card: card, CommitmentID: commitmentID, Risk: &riskReport}
}

func containsEligible(res models.RouteResult, w models.WorldlineId) bool {
	for _, e := range res.Eligible {
		if e == w {
			return true
		}
	}
	return false
}

// policyApplies evaluates a policy's opaque condition string against a
// declaration's scope. A blank condition means "always"; the named
// conditions reuse the same gate-integrity and safety-critical lexicons
// the Self-Mod tier classifier checks proposal paths against, since both
// are asking the same question ("does this touch a sensitive surface?")
// of a different kind of target string.
func policyApplies(p *config.PolicyConfig, decl models.CommitmentDeclaration) bool {
	switch p.Condition {
	case "":
		return true
	case "touches_gate_integrity_path":
		return scopeMatchesLexicon(decl.Scope, models.GateIntegrityLexicon)
	case "touches_safety_critical_path":
		return scopeMatchesLexicon(decl.Scope, models.SafetyCriticalLexicon)
	default:
		return false
	}
}

func scopeMatchesLexicon(scope models.CommitmentScope, lexicon []string) bool {
	haystacks := append([]string{scope.Domain}, scope.Targets...)
	for _, h := range haystacks {
		lower := strings.ToLower(h)
		for _, term := range lexicon {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}

func (g *Gate) validateDeclaration(decl models.CommitmentDeclaration) *models.RuntimeError {
	if err := g.validate.Struct(decl); err != nil {
		return models.WrapRuntimeError(models.KindValidationFailure, "declaration failed structural validation", err)
	}
	minConfidence := g.cfg.Defaults.MinIntentConfidence
	if minConfidence > 0 && decl.IntentConfidence < minConfidence {
		return models.NewRuntimeError(models.KindValidationFailure, "intent confidence below the configured minimum")
	}
	return nil
}

// orderedPolicies returns the configured policy bundle sorted so
// constitutional policies lead, then by ascending priority — constitutional
// policies are always evaluated first and cannot be overridden
// (spec §4.5 stage 4).
func (g *Gate) orderedPolicies() []*config.PolicyConfig {
	all := g.cfg.PolicyRegistry.All()
	sort.Slice(all, func(i, j int) bool {
		if all[i].Constitutional != all[j].Constitutional {
			return all[i].Constitutional
		}
		return all[i].Priority < all[j].Priority
	})
	return all
}

func (g *Gate) appendCommitment(decl models.CommitmentDeclaration, card models.PolicyDecisionCard) (models.ContentHash, error) {
	if g.graph == nil {
		return models.ContentHash{}, fmt.Errorf("gate: no graph wired")
	}
	content := models.NodeContent{
		Kind: models.NodeCommitment,
		Commitment: &models.CommitmentContent{
			Declarer:   decl.Declarer,
			Decision:   card.Decision,
			Conditions: card.Conditions,
			Reason:     card.Reason,
		},
	}
	var parents []models.ContentHash
	if !decl.IntentReference.IsZero() {
		parents = []models.ContentHash{decl.IntentReference}
	}
	tier := models.TierT0
	if g.cfg != nil && g.cfg.Defaults != nil {
		if t, ok := models.ParseGovernanceTier(g.cfg.Defaults.DefaultGovernanceTier); ok {
			tier = t
		}
	}
	for _, pid := range parents {
		if p, ok, err := g.graph.Get(pid); err == nil && ok && p.GovernanceTier > tier {
			tier = p.GovernanceTier
		}
	}
	id, err := g.graph.Append(decl.Declarer, content, parents, time.Now(), tier)
	if err != nil {
		return models.ContentHash{}, err
	}
	content.Commitment.CommitmentID = id
	return id, nil
}

func (g *Gate) deny(decl models.CommitmentDeclaration, reason models.DenyReason, message string) models.AdjudicationResult {
	card := models.PolicyDecisionCard{
		Decision:     models.DecisionDenied,
		Reason:       message,
		DeniedReason: reason,
		DecidedAt:    time.Now(),
	}
	if g.journal != nil {
		_, _ = g.journal.Append(decl.Declarer, "gate_denied", false, message, nil, map[string]string{"reason": string(reason), "trace_id": decl.TraceID})
	}
	return models.AdjudicationResult{Card: card}
}

func (g *Gate) denyWithRisk(decl models.CommitmentDeclaration, reason models.DenyReason, message string, risk models.RiskReport) models.AdjudicationResult {
	res := g.deny(decl, reason, message)
	res.Risk = &risk
	return res
}
