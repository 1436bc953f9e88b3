// Package attention implements the Attention Allocator & Coupling Fabric
// (C2): bounded fractional attention budgets, their exhaustion policies,
// and coercion detection over coupling metrics and signal windows
// (spec §4.2).
package attention

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/accordant-systems/accord/pkg/config"
	"github.com/accordant-systems/accord/pkg/metrics"
	"github.com/accordant-systems/accord/pkg/models"
	"github.com/accordant-systems/accord/pkg/profile"
)

// BudgetStore and CouplingStore are the persistence ports this component
// is built on.
type BudgetStore interface {
	Get(w models.WorldlineId) (models.AttentionBudget, bool, error)
	Put(b models.AttentionBudget) error
}

type CouplingStore interface {
	Get(k models.CouplingKey) (models.CouplingMetrics, bool, error)
	Put(m models.CouplingMetrics) error
	ByTarget(target models.WorldlineId) ([]models.CouplingMetrics, error)
}

// ProfileResolver looks up the recovery profile governing a worldline, so
// adjustCoupling can apply the Maximum Restriction Principle (spec §9) when
// two differently-profiled worldlines interact. A nil resolver (the
// default) leaves coupling strength unbounded, matching the teacher's
// single-tenant deployments where no cross-profile merge ever applies.
type ProfileResolver interface {
	Resolve(w models.WorldlineId) (*config.RecoveryProfileConfig, bool)
}

const (
	urgencyWindowLimit = 5 * time.Minute
	urgencySignalCount = 3
	escalationThreshold = 3
)

// Allocator is the C2 component surface.
type Allocator struct {
	mu        sync.Mutex
	budgets   BudgetStore
	couplings CouplingStore
	signals   map[models.WorldlineId][]models.Signal
	profiles  ProfileResolver
	metrics   *metrics.Registry
}

func New(budgets BudgetStore, couplings CouplingStore) *Allocator {
	return &Allocator{budgets: budgets, couplings: couplings, signals: make(map[models.WorldlineId][]models.Signal)}
}

// WithProfiles attaches the recovery-profile resolver couplings are merged
// against. Returns the Allocator for chaining at construction time.
func (a *Allocator) WithProfiles(r ProfileResolver) *Allocator {
	a.profiles = r
	return a
}

// WithMetrics attaches the collector Allocate records exhaustion events
// against. Returns the Allocator for chaining at construction time.
func (a *Allocator) WithMetrics(m *metrics.Registry) *Allocator {
	a.metrics = m
	return a
}

// Allocate grants fraction of resonator's attention budget, applying the
// worldline's exhaustion policy when the request can't be satisfied
// outright (spec §4.2 "Exhaustion policy").
func (a *Allocator) Allocate(resonator models.WorldlineId, fraction float64) (models.AllocationId, *models.RuntimeError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	budget, ok, err := a.budgets.Get(resonator)
	if err != nil {
		return "", models.WrapRuntimeError(models.KindInternalFailure, "read attention budget", err)
	}
	if !ok {
		return "", models.NewRuntimeError(models.KindValidationFailure, "no attention budget provisioned for resonator")
	}

	if fraction <= budget.Available() {
		return a.commit(&budget, fraction, nil)
	}

	a.metrics.RecordAttentionExhaustion(string(budget.ExhaustionPolicy))

	switch budget.ExhaustionPolicy {
	case models.ExhaustionBlock:
		return "", models.NewRuntimeError(models.KindExhaustionFailure, "attention budget exhausted")

	case models.ExhaustionDegradeWeakest:
		weakest, ok := weakestAllocation(budget)
		if !ok {
			return "", models.NewRuntimeError(models.KindExhaustionFailure, "attention budget exhausted and nothing to degrade")
		}
		needed := fraction - budget.Available()
		alloc := budget.Allocations[weakest]
		if alloc.Fraction <= needed {
			return "", models.NewRuntimeError(models.KindExhaustionFailure, "attention budget exhausted: degrading weakest coupling is insufficient")
		}
		alloc.Fraction -= needed
		budget.Allocations[weakest] = alloc
		return a.commit(&budget, fraction, nil)

	case models.ExhaustionEmergencyDecouple:
		weakest, ok := weakestAllocation(budget)
		if !ok {
			return "", models.NewRuntimeError(models.KindExhaustionFailure, "attention budget exhausted and nothing to sever")
		}
		alloc := budget.Allocations[weakest]
		if alloc.Fraction < fraction-budget.Available() {
			return "", models.NewRuntimeError(models.KindExhaustionFailure, "severing the weakest coupling is insufficient to free the requested fraction")
		}
		delete(budget.Allocations, weakest)
		return a.commit(&budget, fraction, alloc.CouplingRef)

	case models.ExhaustionQueue:
		return "", models.NewRuntimeError(models.KindExhaustionFailure, "attention budget exhausted (queue policy); request was not queued")

	default:
		return "", models.NewRuntimeError(models.KindExhaustionFailure, "attention budget exhausted")
	}
}

func (a *Allocator) commit(budget *models.AttentionBudget, fraction float64, severed *models.CouplingKey) (models.AllocationId, *models.RuntimeError) {
	if budget.Allocations == nil {
		budget.Allocations = make(map[models.AllocationId]models.Allocation)
	}
	id := models.AllocationId(uuid.NewString())
	budget.Allocations[id] = models.Allocation{ID: id, Fraction: fraction, Since: time.Now()}
	if err := a.budgets.Put(*budget); err != nil {
		return "", models.WrapRuntimeError(models.KindInternalFailure, "persist attention allocation", err)
	}
	if severed != nil && a.couplings != nil {
		_ = a.couplings.Put(models.CouplingMetrics{Source: severed.Source, Target: severed.Target, CurrentStrength: 0})
	}
	return id, nil
}

func weakestAllocation(budget models.AttentionBudget) (models.AllocationId, bool) {
	var weakest models.AllocationId
	var weakestFraction = -1.0
	found := false
	for id, alloc := range budget.Allocations {
		if !found || alloc.Fraction < weakestFraction {
			weakest = id
			weakestFraction = alloc.Fraction
			found = true
		}
	}
	return weakest, found
}

// Release frees a previously granted allocation.
func (a *Allocator) Release(resonator models.WorldlineId, id models.AllocationId) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	budget, ok, err := a.budgets.Get(resonator)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("attention: no budget for %s", resonator)
	}
	delete(budget.Allocations, id)
	return a.budgets.Put(budget)
}

// Escalate/Deescalate adjust a coupling's strength, tracking peak and the
// escalation counters the coercion detector consults.
func (a *Allocator) Escalate(source, target models.WorldlineId, delta float64) (models.CouplingMetrics, error) {
	return a.adjustCoupling(source, target, delta, true)
}

func (a *Allocator) Deescalate(source, target models.WorldlineId, delta float64) (models.CouplingMetrics, error) {
	return a.adjustCoupling(source, target, -delta, false)
}

func (a *Allocator) adjustCoupling(source, target models.WorldlineId, delta float64, escalating bool) (models.CouplingMetrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := models.CouplingKey{Source: source, Target: target}
	m, ok, err := a.couplings.Get(key)
	if err != nil {
		return models.CouplingMetrics{}, err
	}
	if !ok {
		m = models.CouplingMetrics{Source: source, Target: target}
	}
	m.CurrentStrength += delta

	if escalating && a.profiles != nil {
		merged := a.mergedProfile(source, target)
		if merged.CouplingLimit > 0 && m.CurrentStrength > merged.CouplingLimit {
			if merged.ExhaustionPolicy == models.ExhaustionEmergencyDecouple {
				return models.CouplingMetrics{}, models.NewRuntimeError(models.KindExhaustionFailure,
					fmt.Sprintf("coupling %s->%s exceeds merged profile limit %.2f, emergency decouple required", source, target, merged.CouplingLimit))
			}
			m.CurrentStrength = merged.CouplingLimit
		}
	}

	if m.CurrentStrength > m.Peak {
		m.Peak = m.CurrentStrength
	}
	if escalating {
		m.EscalationCount++
	} else {
		m.DeescalationCount++
	}
	m.LastUpdated = time.Now()
	if err := a.couplings.Put(m); err != nil {
		return models.CouplingMetrics{}, err
	}
	return m, nil
}

// mergedProfile resolves source and target's recovery profiles and applies
// the Maximum Restriction Principle (spec §9) to the pair.
func (a *Allocator) mergedProfile(source, target models.WorldlineId) profile.Merged {
	sp, _ := a.profiles.Resolve(source)
	tp, _ := a.profiles.Resolve(target)
	return profile.Merge(sp, tp)
}

// RecordSignal appends a coercion-detection signal to the short window
// kept for the target.
func (a *Allocator) RecordSignal(sig models.Signal) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := sig.At.Add(-urgencyWindowLimit)
	window := a.signals[sig.Target]
	window = append(window, sig)
	pruned := window[:0]
	for _, s := range window {
		if s.At.After(cutoff) {
			pruned = append(pruned, s)
		}
	}
	a.signals[sig.Target] = pruned
}

// AssertHealth runs the coercion detection thresholds of spec §4.2 over a
// resonator's inbound couplings and recent signal window.
func (a *Allocator) AssertHealth(resonator models.WorldlineId) ([]models.CoercionIndicator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var indicators []models.CoercionIndicator

	couplings, err := a.couplings.ByTarget(resonator)
	if err != nil {
		return nil, err
	}
	for _, m := range couplings {
		if m.AttentionFraction > 0.95 {
			indicators = append(indicators, models.CoercionIndicator{
				Type:           models.IndicatorAttentionExploitation,
				Confidence:     0.9,
				Description:    fmt.Sprintf("%s holds %.0f%% of %s's attention", m.Source, m.AttentionFraction*100, m.Target),
				Recommendation: models.RecommendSeverCoupling,
			})
		} else if m.AttentionFraction > 0.90 {
			indicators = append(indicators, models.CoercionIndicator{
				Type:           models.IndicatorAttentionExploitation,
				Confidence:     0.7,
				Description:    fmt.Sprintf("%s holds %.0f%% of %s's attention", m.Source, m.AttentionFraction*100, m.Target),
				Recommendation: models.RecommendApplyDamping,
			})
		}

		if m.EscalationCount >= escalationThreshold && !m.TargetConsented {
			indicators = append(indicators, models.CoercionIndicator{
				Type:           models.IndicatorAsymmetricEscalation,
				Confidence:     0.75,
				Description:    fmt.Sprintf("%s escalated %d times against %s without consent", m.Source, m.EscalationCount, m.Target),
				Recommendation: models.RecommendWarnHuman,
			})
		}

		if m.DependencyScore > 0.70 && m.FailedDisengagementAttempts > 0 {
			indicators = append(indicators, models.CoercionIndicator{
				Type:           models.IndicatorEmergencyDecouple,
				Confidence:     0.85,
				Description:    fmt.Sprintf("%s cannot disengage from %s (dependency %.2f, %d failed attempts)", m.Target, m.Source, m.DependencyScore, m.FailedDisengagementAttempts),
				Recommendation: models.RecommendEmergencyDecouple,
			})
		}
	}

	urgencyCount := 0
	for _, s := range a.signals[resonator] {
		if s.Kind == models.SignalUrgencyPressure {
			urgencyCount++
		}
	}
	if urgencyCount >= urgencySignalCount {
		confidence := 0.6 + 0.1*float64(urgencyCount-urgencySignalCount)
		if confidence > 1.0 {
			confidence = 1.0
		}
		indicators = append(indicators, models.CoercionIndicator{
			Type:           models.IndicatorUrgencyManipulation,
			Confidence:     confidence,
			Description:    fmt.Sprintf("%d urgency-pressure signals observed in the last %s", urgencyCount, urgencyWindowLimit),
			Recommendation: models.RecommendWarnHuman,
		})
	}

	return indicators, nil
}
