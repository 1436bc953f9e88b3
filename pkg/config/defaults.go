package config

// Defaults contains system-wide default configuration values used when
// a specific policy, role, or the gate pipeline itself doesn't specify
// its own values.
type Defaults struct {
	// MinIntentConfidence is the Declaration Validation floor (§4.5 stage 1),
	// applied to every declaration; declarations carry no threshold of their own.
	MinIntentConfidence float64 `yaml:"min_intent_confidence,omitempty" validate:"omitempty,min=0,max=1"`

	// BlockThreshold / ReviewThreshold are the Risk Assessment gates
	// (§4.5 stage 5), applied to every declaration; policies cannot override them.
	BlockThreshold  int `yaml:"block_threshold,omitempty" validate:"omitempty,min=0,max=100"`
	ReviewThreshold int `yaml:"review_threshold,omitempty" validate:"omitempty,min=0,max=100"`

	// MaxConcurrentCommitments bounds the per-worldline Gate input queue
	// before backpressure kicks in (§5).
	MaxConcurrentCommitments int `yaml:"max_concurrent_commitments,omitempty" validate:"omitempty,min=1"`

	// RoleOnlyFallbackAllowed is the explicit policy flag from §4.3 step 7 /
	// §8 property 8: routing may fall back to a role-only match (no covering
	// permit) only when this is true.
	RoleOnlyFallbackAllowed bool `yaml:"role_only_fallback_allowed,omitempty"`

	// DefaultGovernanceTier is the lowest tier assigned to a Commitment node
	// (T0 when unset or unparseable); a Commitment whose parent Intent carries
	// a higher tier, as a Self-Mod proposal's does, takes the parent's tier.
	DefaultGovernanceTier string `yaml:"default_governance_tier,omitempty"`
}
