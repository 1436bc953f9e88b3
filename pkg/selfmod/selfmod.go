// Package selfmod implements the Self-Modification Tier Classifier & Gate
// Extension (C6): tier-specific mandatory pre-checks and rate limiting for
// proposed runtime changes, ahead of the standard Commitment Gate pipeline
// (spec §4.6).
package selfmod

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/accordant-systems/accord/pkg/gate"
	"github.com/accordant-systems/accord/pkg/graph"
	"github.com/accordant-systems/accord/pkg/models"
)

// Extension wraps the Commitment Gate with the Self-Mod tier classifier:
// mandatory pre-checks and a per-tier rate limiter run before a proposal's
// derived declaration ever reaches the standard pipeline.
type Extension struct {
	gate    *gate.Gate
	graph   *graph.Graph
	table   map[models.SelfModTier]models.TierRequirements
	limiter *tierLimiter
}

// New wires a Self-Mod Gate extension in front of an already-constructed
// Gate, sharing its Context Graph so every proposal that clears the
// pre-checks and its tier's rate limit gets its own Intent node as provenance before the
// derived Commitment is appended. limits gives each tier's sustained-rate
// and burst allowance; a tier absent from limits is unthrottled.
func New(g *gate.Gate, gr *graph.Graph, limits map[models.SelfModTier]TierLimit) *Extension {
	return &Extension{
		gate:    g,
		graph:   gr,
		table:   models.DefaultTierTable(),
		limiter: newTierLimiter(limits),
	}
}

// TierLimit configures one tier's token bucket.
type TierLimit struct {
	PerHour float64
	Burst   int
}

type tierLimiter struct {
	mu       sync.Mutex
	limiters map[models.SelfModTier]*rate.Limiter
}

func newTierLimiter(limits map[models.SelfModTier]TierLimit) *tierLimiter {
	l := &tierLimiter{limiters: make(map[models.SelfModTier]*rate.Limiter, len(limits))}
	for tier, cfg := range limits {
		if cfg.PerHour <= 0 {
			continue
		}
		l.limiters[tier] = rate.NewLimiter(rate.Limit(cfg.PerHour/3600.0), cfg.Burst)
	}
	return l
}

func (l *tierLimiter) allow(tier models.SelfModTier) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[tier]
	if !ok {
		return true
	}
	return lim.Allow()
}

// Submit runs the tier's mandatory pre-checks, then its rate limiter, then
// hands a derived CommitmentDeclaration to the standard Gate pipeline. A
// proposal failing a mandatory check or its rate limit is denied before
// the Gate ever sees it (spec §4.6: "Gate pipeline is never entered").
func (e *Extension) Submit(p models.SelfModProposal) models.AdjudicationResult {
	req, ok := e.table[p.Tier]
	if !ok {
		return denied(p, models.ReasonSelfModViolation, "unknown self-modification tier")
	}

	if violation := mandatoryChecks(p); violation != "" {
		return denied(p, models.ReasonSelfModViolation, violation)
	}

	if p.Confidence < req.MinConfidence {
		return denied(p, models.ReasonSelfModViolation, fmt.Sprintf("confidence %.2f below tier %s minimum %.2f", p.Confidence, p.Tier, req.MinConfidence))
	}
	if p.ObservationWindow < req.MinObservation {
		return denied(p, models.ReasonSelfModViolation, fmt.Sprintf("observation window %s below tier %s minimum %s", p.ObservationWindow, p.Tier, req.MinObservation))
	}

	if !e.limiter.allow(p.Tier) {
		return denied(p, models.ReasonRateLimited, fmt.Sprintf("tier %s rate limit exceeded", p.Tier))
	}

	intentID, err := e.graph.Append(p.Declarer, models.NodeContent{
		Kind: models.NodeIntent,
		Intent: &models.IntentContent{
			Description: fmt.Sprintf("self-modification proposal %s (tier %s)", p.ID, p.Tier),
			Confidence:  p.Confidence,
			Metadata:    map[string]string{"proposal_id": p.ID},
		},
	}, nil, time.Now(), p.Tier)
	if err != nil {
		return denied(p, models.ReasonInternal, "failed to record proposal intent")
	}

	decl := models.CommitmentDeclaration{
		Declarer:         p.Declarer,
		Scope:            models.CommitmentScope{Domain: "self_mod", Targets: p.AffectedPaths},
		IntentReference:  intentID,
		IntentConfidence: p.Confidence,
		CapabilityRefs:   []models.CapabilityId{"CAP-GOVERN"},
		TraceID:          p.ID,
	}
	return e.gate.Submit(decl)
}

// mandatoryChecks runs spec §4.6's six built-in checks, returning a
// non-empty violation name on the first one that fails.
func mandatoryChecks(p models.SelfModProposal) string {
	if p.CodeChanges < 1 || p.Tests < 1 || p.RollbackSteps < 1 {
		return "ProposalIncomplete"
	}
	if p.RollbackMaxDuration > p.DeployMaxDuration {
		return "RollbackNotViable"
	}
	if pathsMatchLexicon(p.AffectedPaths, models.SafetyCriticalLexicon) {
		return "SafetyPreservationViolation"
	}
	if pathsMatchLexicon(p.AffectedPaths, models.GateIntegrityLexicon) {
		return "GateIntegrityViolation"
	}
	if p.AffectedComponents < 1 || p.AffectedComponents > 10 {
		return "ScopeOutOfBounds"
	}
	if pathsMatchLexicon(p.AffectedPaths, models.InvariantCriticalLexicon) {
		return "InvariantCriticalViolation"
	}
	return ""
}

func pathsMatchLexicon(paths []string, lexicon []string) bool {
	for _, path := range paths {
		lower := strings.ToLower(path)
		for _, term := range lexicon {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}

func denied(p models.SelfModProposal, reason models.DenyReason, message string) models.AdjudicationResult {
	return models.AdjudicationResult{
		Card: models.PolicyDecisionCard{
			Decision:     models.DecisionDenied,
			Reason:       message,
			DeniedReason: reason,
			DecidedAt:    time.Now(),
		},
	}
}
