// Package models holds the shared data types of the accountability runtime
// (spec §3): worldline identity, the Context Graph node shape, commitments,
// threshold commitments, attention/coupling bookkeeping, journal entries,
// and the Router/Gate result types. These are plain structs — no behavior
// beyond small invariant helpers lives here; the components in pkg/graph,
// pkg/gate, pkg/threshold, etc. own the logic.
package models

import "time"

// WorldlineId is the stable identity of a Resonator, derived deterministically
// from IdentityMaterial (spec §3). It is never recomputed from mutable state.
type WorldlineId string

// IdentityMaterialKind is the closed set of material a WorldlineId can be
// derived from.
type IdentityMaterialKind string

const (
	MaterialGenesisHash       IdentityMaterialKind = "GenesisHash"
	MaterialPublicKey         IdentityMaterialKind = "PublicKey"
	MaterialPolicyDerivedSeed IdentityMaterialKind = "PolicyDerivedSeed"
)

// IdentityMaterial is the input to derivation. Exactly one field matching
// Kind is populated; Ephemeral worldlines additionally carry a Nonce.
type IdentityMaterial struct {
	Kind      IdentityMaterialKind
	Bytes     []byte // 32-byte genesis hash, public key bytes, or seed material
	Ephemeral bool
	Nonce     []byte // required iff Ephemeral
}

// Incarnation is a monotonically increasing counter advanced on recovery.
type Incarnation uint64

// WorldlineRecord is the runtime's registered view of a Resonator: its
// derived id, current incarnation, and revocation state. The Gate's
// Identity Binding stage (§4.5 stage 2) consults this.
type WorldlineRecord struct {
	ID              WorldlineId
	Material        IdentityMaterial
	Incarnation     Incarnation
	Revoked         bool
	RegisteredAt    time.Time
	LastIncarnateAt time.Time

	// RecoveryProfile names the config.RecoveryProfileConfig bundle this
	// worldline was registered under (spec §9's Mapleverse/Finalverse/iBank
	// platform variants). Empty means no profile governs it, and the
	// Maximum Restriction Principle merge is a no-op for its couplings.
	RecoveryProfile string
}

// GovernanceTier is the closed T0..T5 tier set shared by Context Graph
// nodes (§4.1) and the Self-Modification classifier (§4.6).
type GovernanceTier int

const (
	TierT0 GovernanceTier = iota // Configuration
	TierT1                       // Operator internal
	TierT2                       // API change
	TierT3                       // Kernel change
	TierT4                       // Substrate change
	TierT5                       // Architectural
)

func (t GovernanceTier) String() string {
	names := [...]string{"T0", "T1", "T2", "T3", "T4", "T5"}
	if int(t) < 0 || int(t) >= len(names) {
		return "T?"
	}
	return names[t]
}

// ParseGovernanceTier maps a label like "T3" back to its GovernanceTier.
func ParseGovernanceTier(s string) (GovernanceTier, bool) {
	switch s {
	case "T0":
		return TierT0, true
	case "T1":
		return TierT1, true
	case "T2":
		return TierT2, true
	case "T3":
		return TierT3, true
	case "T4":
		return TierT4, true
	case "T5":
		return TierT5, true
	default:
		return TierT0, false
	}
}
