package models

import "time"

// ThresholdPolicyKind closes the set of satisfaction predicates spec §4.4
// defines.
type ThresholdPolicyKind string

const (
	PolicySingleSigner ThresholdPolicyKind = "SingleSigner"
	PolicyMofN         ThresholdPolicyKind = "MofN"
	PolicyRoleQuorum   ThresholdPolicyKind = "RoleQuorum"
)

// ThresholdPolicy is spec §3 ThresholdCommitment.policy.
type ThresholdPolicy struct {
	Kind  ThresholdPolicyKind
	M     int      // MofN.m
	N     int      // MofN.n
	Roles []RoleId // RoleQuorum.roles
}

// Signature is one entry of ThresholdCommitment.signatures (spec §3).
// Duplicates from the same signer count once; a later signature from the
// same signer may replace the timestamp but never increases the count.
type Signature struct {
	Signer WorldlineId
	Role   *RoleId
	At     time.Time
}

// ThresholdState is the lifecycle of spec §3/§4.4.
type ThresholdState string

const (
	ThresholdCollecting ThresholdState = "Collecting"
	ThresholdSatisfied  ThresholdState = "Satisfied"
	ThresholdExpired    ThresholdState = "Expired"
	ThresholdRejected   ThresholdState = "Rejected"
)

func (s ThresholdState) Terminal() bool {
	return s == ThresholdSatisfied || s == ThresholdExpired || s == ThresholdRejected
}

// ThresholdCommitment is spec §3/§4.4's m-of-n / role-quorum / single-signer
// approval object.
type ThresholdCommitment struct {
	ID                 ContentHash
	ActionDescription  string
	Policy             ThresholdPolicy
	Signatures         []Signature
	Deadline           *time.Time
	State              ThresholdState
	CreatedAt          time.Time
	Value              *int64
	RejectedReason     string
}

// IsMet evaluates the policy's satisfaction predicate over the current
// signature set (spec §4.4 "Satisfaction predicates").
//
// RoleQuorum is met when every required role appears as the Role of at
// least one signature. It reads the Role recorded on each Signature at
// signing time; role membership is not re-checked at evaluation time, and
// signatures without a Role cover no role.
func (tc *ThresholdCommitment) IsMet() bool {
	switch tc.Policy.Kind {
	case PolicySingleSigner:
		return len(distinctSigners(tc.Signatures)) >= 1
	case PolicyMofN:
		return len(distinctSigners(tc.Signatures)) >= tc.Policy.M
	case PolicyRoleQuorum:
		covered := make(map[RoleId]bool, len(tc.Policy.Roles))
		for _, sig := range tc.Signatures {
			if sig.Role != nil {
				covered[*sig.Role] = true
			}
		}
		for _, r := range tc.Policy.Roles {
			if !covered[r] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func distinctSigners(sigs []Signature) map[WorldlineId]bool {
	out := make(map[WorldlineId]bool, len(sigs))
	for _, s := range sigs {
		out[s.Signer] = true
	}
	return out
}

// SignOutcome is the result of Threshold::sign (spec §4.4).
type SignOutcome string

const (
	SignAccepted          SignOutcome = "Accepted"
	SignThresholdMet      SignOutcome = "ThresholdMet"
	SignAlreadySatisfied  SignOutcome = "AlreadySatisfied"
	SignExpired           SignOutcome = "Expired"
	SignRejected          SignOutcome = "Rejected"
)

// SignResult carries SignOutcome plus the distinct-signer count.
type SignResult struct {
	Outcome SignOutcome
	Count   int // distinct-signer count, set for Accepted, ThresholdMet and AlreadySatisfied
}
