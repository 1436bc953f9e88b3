package models

import "time"

// SelfModTier is the six-tier classification of spec §4.6, reusing
// GovernanceTier's T0..T5 enumeration.
type SelfModTier = GovernanceTier

// TierRequirements is one row of spec §4.6's table.
type TierRequirements struct {
	Tier               SelfModTier
	MinConfidence      float64
	MinObservation     time.Duration
	HumanReview        bool
	GovernanceReview   bool
	DeployStrategyName string
}

// DefaultTierTable returns the fixed tier requirement table of spec §4.6.
func DefaultTierTable() map[SelfModTier]TierRequirements {
	return map[SelfModTier]TierRequirements{
		TierT0: {TierT0, 0.70, 1800 * time.Second, false, false, "Immediate"},
		TierT1: {TierT1, 0.80, 3600 * time.Second, false, false, "Canary5"},
		TierT2: {TierT2, 0.85, 86400 * time.Second, false, true, "CanaryStaged"},
		TierT3: {TierT3, 0.90, 259200 * time.Second, true, true, "Staged"},
		TierT4: {TierT4, 0.95, 604800 * time.Second, true, true, "StagedMultiParty"},
		TierT5: {TierT5, 0.98, 1209600 * time.Second, true, true, "BlueGreen"},
	}
}

// SafetyCriticalLexicon and GateIntegrityLexicon are the mandatory-check
// path lexical sets of spec §4.6.
var (
	SafetyCriticalLexicon = []string{"safety", "rollback", "emergency", "invariant", "consent", "coercion"}
	GateIntegrityLexicon  = []string{"gate", "adjudication", "commitment_gate", "self_mod_gate"}
	InvariantCriticalLexicon = []string{"rate_limiter", "emergency_stop"}
)

// SelfModProposal is the input to the Self-Mod Gate extension.
type SelfModProposal struct {
	ID                  string
	Declarer            WorldlineId
	Tier                SelfModTier
	AffectedPaths       []string
	AffectedComponents  int
	CodeChanges         int
	Tests               int
	RollbackSteps       int
	RollbackMaxDuration time.Duration
	DeployMaxDuration   time.Duration
	Confidence          float64
	ObservationWindow   time.Duration
}

// DeploymentPhase is spec §4.6's deployment lifecycle state machine.
type DeploymentPhase string

const (
	PhaseValidating DeploymentPhase = "Validating"
	PhaseDeploying  DeploymentPhase = "Deploying"
	PhaseMonitoring DeploymentPhase = "Monitoring"
	PhasePromoting  DeploymentPhase = "Promoting"
	PhaseComplete   DeploymentPhase = "Complete"
	PhaseRollingBack DeploymentPhase = "RollingBack"
	PhaseRolledBack DeploymentPhase = "RolledBack"
)

// DeploymentRecord tracks one self-modification's rollout.
type DeploymentRecord struct {
	ProposalID      string
	Phase           DeploymentPhase
	Fraction        float64
	ElapsedMonitor  time.Duration
	PromotingFrom   float64
	PromotingTo     float64
	Baseline        map[string]float64
	Latest          map[string]float64
	MaxRegressionPct float64
	AutoRollback    bool
	UpdatedAt       time.Time
}
