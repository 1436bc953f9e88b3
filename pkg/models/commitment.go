package models

import "time"

// CommitmentState is the state machine of spec §3 Commitment:
// Declared → {Approved, Denied, PendingReview}; Approved → {Fulfilled, Failed}.
type CommitmentState string

const (
	CommitmentDeclared      CommitmentState = "Declared"
	CommitmentApproved      CommitmentState = "Approved"
	CommitmentDenied        CommitmentState = "Denied"
	CommitmentPendingReview CommitmentState = "PendingReview"
	CommitmentFulfilled     CommitmentState = "Fulfilled"
	CommitmentFailed        CommitmentState = "Failed"
)

// Terminal reports whether s is a terminal state (spec §8 property 6:
// "terminal immutability").
func (s CommitmentState) Terminal() bool {
	switch s {
	case CommitmentFulfilled, CommitmentFailed, CommitmentDenied:
		return true
	default:
		return false
	}
}

// validTransitions enumerates the only legal state-machine edges.
var validTransitions = map[CommitmentState]map[CommitmentState]bool{
	CommitmentDeclared: {
		CommitmentApproved:      true,
		CommitmentDenied:        true,
		CommitmentPendingReview: true,
	},
	CommitmentPendingReview: {
		CommitmentApproved: true,
		CommitmentDenied:   true,
	},
	CommitmentApproved: {
		CommitmentFulfilled: true,
		CommitmentFailed:    true,
	},
}

// CanTransition reports whether moving from `from` to `to` is legal.
func CanTransition(from, to CommitmentState) bool {
	return validTransitions[from][to]
}

// CommitmentScope is spec §3 Commitment.scope.
type CommitmentScope struct {
	Domain      string
	Targets     []string
	Constraints map[string]string
}

// EventId references the Intent node establishing intent_reference.
type EventId = ContentHash

// Commitment is spec §3's declared intention record.
type Commitment struct {
	ID              ContentHash
	Declarer        WorldlineId
	Scope           CommitmentScope
	IntentReference EventId
	CapabilityRefs  []CapabilityId
	ThresholdPolicy *ThresholdPolicy
	DeclaredAt      time.Time
	State           CommitmentState
}

// CommitmentDeclaration is the input to Gate::submit (spec §4.5, §6).
type CommitmentDeclaration struct {
	Declarer         WorldlineId             `validate:"required"`
	Scope            CommitmentScope         `validate:"required"`
	IntentReference  EventId
	IntentConfidence float64                 `validate:"min=0,max=1"`
	CapabilityRefs   []CapabilityId
	ThresholdPolicy  *ThresholdPolicy
	Amount           *int64 // basis points or minor currency unit; nil if not financial
	Counterparty     WorldlineId
	Jurisdiction     string
	Deadline         *time.Time
	TraceID          string `validate:"required"`
}

// DecisionKind is the three-way outcome of the Gate pipeline (spec §4.5).
type DecisionKind string

const (
	DecisionApproved      DecisionKind = "Approved"
	DecisionDenied        DecisionKind = "Denied"
	DecisionPendingReview DecisionKind = "PendingReview"
)

// DenyReason is the closed taxonomy of reasons a stage can deny for
// (spec §4.5, §7).
type DenyReason string

const (
	ReasonInvalidDeclaration DenyReason = "InvalidDeclaration"
	ReasonUnknownIdentity    DenyReason = "UnknownIdentity"
	ReasonCapabilityMissing  DenyReason = "CapabilityMissing"
	ReasonPolicyDeny         DenyReason = "PolicyDeny"
	ReasonRiskBlock          DenyReason = "RiskBlock"
	ReasonCoercion           DenyReason = "Coercion"
	ReasonTimeout            DenyReason = "Timeout"
	ReasonInternal           DenyReason = "Internal"
	ReasonSelfModViolation   DenyReason = "SelfModViolation"
	ReasonRateLimited        DenyReason = "RateLimited"
)

// ReviewRequirement is the closed set of things a PendingReview can be
// waiting on.
type ReviewRequirement string

const (
	ReviewHuman               ReviewRequirement = "Human"
	ReviewThresholdSignatures ReviewRequirement = "ThresholdSignatures"
	ReviewBackpressureHold    ReviewRequirement = "BackpressureHold"
)

// Condition is an approval condition attached to an Approved decision
// (spec §4.5 stage 7).
type Condition struct {
	Kind     ConditionKind
	Fraction float64       // for CanaryRequired
	Duration time.Duration // for CanaryRequired
}

type ConditionKind string

const (
	ConditionNotifyGovernance      ConditionKind = "NotifyGovernance"
	ConditionAutoRollbackOnRegress ConditionKind = "AutoRollbackOnRegression"
	ConditionCanaryRequired        ConditionKind = "CanaryRequired"
	ConditionStagedRollout         ConditionKind = "StagedRollout"
	ConditionManualApproval        ConditionKind = "ManualApproval"
)

// PolicyDecisionCard is the Gate's Final Decision output (spec §4.5 stage 7,
// GLOSSARY).
type PolicyDecisionCard struct {
	Decision           DecisionKind
	Conditions         []Condition
	ReviewRequirements []ReviewRequirement
	Reason             string
	PolicyID           string // set when a policy's Deny or Hold action produced the decision
	DeniedReason       DenyReason
	DecidedAt          time.Time
}

// AdjudicationResult is the result of Gate::submit (spec §4.5).
type AdjudicationResult struct {
	Card         PolicyDecisionCard
	CommitmentID ContentHash // set once a Commitment node has been appended
	Risk         *RiskReport
}
