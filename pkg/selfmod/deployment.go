package selfmod

import (
	"sync"
	"time"

	"github.com/accordant-systems/accord/pkg/models"
)

// DeploymentTracker holds every in-flight self-modification rollout and
// drives its phase transitions (spec §4.6: "Validating -> Deploying(frac)
// -> Monitoring(frac, elapsed) -> Promoting(a->b) -> ... -> Complete" with
// "RollingBack -> RolledBack" as the failure branch).
type DeploymentTracker struct {
	mu                sync.Mutex
	records           map[string]*models.DeploymentRecord
	defaultMaxRegress float64
}

// NewDeploymentTracker builds a tracker. defaultMaxRegressionPct is used
// for any record that doesn't set its own (spec default: 5%).
func NewDeploymentTracker(defaultMaxRegressionPct float64) *DeploymentTracker {
	if defaultMaxRegressionPct <= 0 {
		defaultMaxRegressionPct = 0.05
	}
	return &DeploymentTracker{records: make(map[string]*models.DeploymentRecord), defaultMaxRegress: defaultMaxRegressionPct}
}

// Begin starts a new deployment record in Validating for a proposal that
// has already cleared the Gate.
func (t *DeploymentTracker) Begin(proposalID string, autoRollback bool) *models.DeploymentRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := &models.DeploymentRecord{
		ProposalID:       proposalID,
		Phase:            models.PhaseValidating,
		MaxRegressionPct: t.defaultMaxRegress,
		AutoRollback:     autoRollback,
		UpdatedAt:        time.Now(),
	}
	t.records[proposalID] = rec
	return rec
}

func (t *DeploymentTracker) Get(proposalID string) (models.DeploymentRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[proposalID]
	if !ok {
		return models.DeploymentRecord{}, false
	}
	return *rec, true
}

// Advance moves a Validating, Monitoring or Promoting record into Deploying
// at the given fraction.
func (t *DeploymentTracker) Advance(proposalID string, fraction float64, baseline map[string]float64) (models.DeploymentRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[proposalID]
	if !ok {
		return models.DeploymentRecord{}, deploymentNotFound(proposalID)
	}
	if rec.Phase != models.PhaseValidating && rec.Phase != models.PhaseMonitoring && rec.Phase != models.PhasePromoting {
		return models.DeploymentRecord{}, illegalTransition(rec.Phase, models.PhaseDeploying)
	}
	rec.Phase = models.PhaseDeploying
	rec.Fraction = fraction
	rec.ElapsedMonitor = 0
	if baseline != nil {
		rec.Baseline = baseline
	}
	rec.UpdatedAt = time.Now()
	return *rec, nil
}

// Monitor records a health snapshot against the deployment's baseline. If
// any metric regresses past MaxRegressionPct and AutoRollback is set, the
// record transitions straight to RollingBack (spec §4.6).
func (t *DeploymentTracker) Monitor(proposalID string, elapsed time.Duration, latest map[string]float64) (models.DeploymentRecord, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[proposalID]
	if !ok {
		return models.DeploymentRecord{}, false, deploymentNotFound(proposalID)
	}
	rec.Phase = models.PhaseMonitoring
	rec.ElapsedMonitor += elapsed
	rec.Latest = latest
	rec.UpdatedAt = time.Now()

	regressed := worstRegression(rec.Baseline, latest) > rec.MaxRegressionPct
	if regressed && rec.AutoRollback {
		rec.Phase = models.PhaseRollingBack
	}
	return *rec, regressed, nil
}

// worstRegression returns the largest fractional drop of any metric in
// latest relative to its baseline value (a metric missing from either side
// is ignored; an increase counts as zero regression).
func worstRegression(baseline, latest map[string]float64) float64 {
	worst := 0.0
	for name, base := range baseline {
		if base == 0 {
			continue
		}
		cur, ok := latest[name]
		if !ok {
			continue
		}
		drop := (base - cur) / base
		if drop > worst {
			worst = drop
		}
	}
	return worst
}

// Promote moves Monitoring -> Promoting(from->to); a fraction of 1.0
// indicates the final promotion, and the caller should call Complete next.
func (t *DeploymentTracker) Promote(proposalID string, to float64) (models.DeploymentRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[proposalID]
	if !ok {
		return models.DeploymentRecord{}, deploymentNotFound(proposalID)
	}
	if rec.Phase != models.PhaseMonitoring {
		return models.DeploymentRecord{}, illegalTransition(rec.Phase, models.PhasePromoting)
	}
	rec.PromotingFrom = rec.Fraction
	rec.PromotingTo = to
	rec.Fraction = to
	rec.Phase = models.PhasePromoting
	rec.UpdatedAt = time.Now()
	return *rec, nil
}

func (t *DeploymentTracker) Complete(proposalID string) (models.DeploymentRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[proposalID]
	if !ok {
		return models.DeploymentRecord{}, deploymentNotFound(proposalID)
	}
	if rec.Phase != models.PhasePromoting && rec.Fraction < 1.0 {
		return models.DeploymentRecord{}, illegalTransition(rec.Phase, models.PhaseComplete)
	}
	rec.Phase = models.PhaseComplete
	rec.UpdatedAt = time.Now()
	return *rec, nil
}

// RollBack finishes the failure branch, RollingBack -> RolledBack, callable
// from any phase (an operator-triggered rollback need not wait on Monitor
// to have already flagged a regression).
func (t *DeploymentTracker) RollBack(proposalID string) (models.DeploymentRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[proposalID]
	if !ok {
		return models.DeploymentRecord{}, deploymentNotFound(proposalID)
	}
	rec.Phase = models.PhaseRolledBack
	rec.UpdatedAt = time.Now()
	return *rec, nil
}

func deploymentNotFound(id string) error {
	return models.NewRuntimeError(models.KindValidationFailure, "self-mod deployment record not found: "+id)
}

func illegalTransition(from, to models.DeploymentPhase) error {
	return models.NewRuntimeError(models.KindValidationFailure, "illegal deployment phase transition from "+string(from)+" to "+string(to))
}
