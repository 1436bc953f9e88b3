package models

import "time"

// NodeKind is the closed set of Context Graph content types (spec §3),
// forming the Intent→Inference→Delta→Evidence→Commitment→Consequence
// evolution chain.
type NodeKind string

const (
	NodeIntent       NodeKind = "Intent"
	NodeInference    NodeKind = "Inference"
	NodeDelta        NodeKind = "Delta"
	NodeEvidence     NodeKind = "Evidence"
	NodeCommitment   NodeKind = "Commitment"
	NodeConsequence  NodeKind = "Consequence"
)

// stageOrder is the fixed topological order nodes of a single chain must
// follow (spec §4.1 "Validation of a chain").
var stageOrder = map[NodeKind]int{
	NodeIntent:      0,
	NodeInference:   1,
	NodeDelta:       2,
	NodeEvidence:    3,
	NodeCommitment:  4,
	NodeConsequence: 5,
}

// StageIndex returns the node kind's position in the fixed evolution order.
func StageIndex(k NodeKind) (int, bool) {
	i, ok := stageOrder[k]
	return i, ok
}

// NodeContent is the typed payload a WllNode carries. Exactly one field is
// non-nil, matching Kind.
type NodeContent struct {
	Kind        NodeKind
	Intent      *IntentContent      `json:",omitempty"`
	Inference   *InferenceContent   `json:",omitempty"`
	Delta       *DeltaContent       `json:",omitempty"`
	Evidence    *EvidenceContent    `json:",omitempty"`
	Commitment  *CommitmentContent  `json:",omitempty"`
	Consequence *ConsequenceContent `json:",omitempty"`
}

type IntentContent struct {
	Description string
	Confidence  float64
	Metadata    map[string]string
}

type InferenceContent struct {
	Summary    string
	Confidence float64
}

type DeltaContent struct {
	Description string
	Fields      map[string]string
}

type EvidenceContent struct {
	Source  string
	Payload map[string]string
}

// CommitmentContent is the node payload produced when the Gate's Final
// Decision stage (§4.5 stage 7) appends a Commitment node.
type CommitmentContent struct {
	CommitmentID ContentHash
	Declarer     WorldlineId
	Decision     DecisionKind
	Conditions   []Condition
	Reason       string
}

type ConsequenceContent struct {
	CommitmentID ContentHash
	Outcome      string
	ExecutedAt   time.Time
}

// WllNode is the unit of the append-only Context Graph DAG (spec §4.1).
type WllNode struct {
	ID             ContentHash
	ParentIDs      []ContentHash
	Content        NodeContent
	WorldlineID    WorldlineId
	Timestamp      time.Time
	GovernanceTier GovernanceTier
	Signature      []byte // optional detached Ed25519 signature over ID
}
