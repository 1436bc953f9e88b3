package config

// BuiltinConfig holds the runtime's built-in capability, role, and
// constitutional-policy definitions. These ship with the binary and are
// layered under whatever a deployment's accord.yaml supplies (§9:
// platform profiles are configuration values, never compiled in).
type BuiltinConfig struct {
	Capabilities     map[string]CapabilityConfig
	Roles            map[string]RoleConfig
	Policies         map[string]PolicyConfig
	RecoveryProfiles map[string]RecoveryProfileConfig
	Defaults         Defaults
}

// GetBuiltinConfig returns the runtime's compiled-in defaults.
//
// The constitutional policies here are the floor every deployment gets
// regardless of its own policy bundle — they are marked Constitutional
// and so can never be overridden by mergePolicies (§4.5 stage 4: "always
// evaluated first and cannot be overridden").
func GetBuiltinConfig() BuiltinConfig {
	return BuiltinConfig{
		Capabilities: map[string]CapabilityConfig{
			"CAP-EXECUTE": {ID: "CAP-EXECUTE", ActionType: ActionExecute, Description: "perform a consequential side-effecting action"},
			"CAP-AUDIT":   {ID: "CAP-AUDIT", ActionType: ActionAudit, Description: "read the journal and context graph"},
			"CAP-READ":    {ID: "CAP-READ", ActionType: ActionRead, Description: "read runtime state"},
			"CAP-CONFIG":  {ID: "CAP-CONFIG", ActionType: ActionConfigure, Description: "change runtime configuration"},
			"CAP-GOVERN":  {ID: "CAP-GOVERN", ActionType: ActionGovern, Description: "approve or veto self-modification proposals"},
		},
		Roles: map[string]RoleConfig{
			"auditor": {
				ID: "auditor", Name: "Auditor",
				Description:  "read-only access to the journal and context graph",
				Capabilities: []string{"CAP-AUDIT", "CAP-READ"},
			},
			"governor": {
				ID: "governor", Name: "Governor",
				Description:  "votes on self-modification proposals",
				Capabilities: []string{"CAP-GOVERN", "CAP-READ"},
			},
		},
		Policies: map[string]PolicyConfig{
			"P-CONST-GATE-INTEGRITY": {
				ID: "P-CONST-GATE-INTEGRITY", Condition: "touches_gate_integrity_path",
				Action: PolicyDeny, Priority: 0, Constitutional: true,
			},
			"P-CONST-SAFETY": {
				ID: "P-CONST-SAFETY", Condition: "touches_safety_critical_path",
				Action: PolicyDeny, Priority: 0, Constitutional: true,
			},
		},
		RecoveryProfiles: map[string]RecoveryProfileConfig{
			"default": {
				Name: "default", CouplingLimit: 0.8, ConsentFloor: 0.2,
				RiskClassCap: 70, AllowedEffectDomains: []string{"*"},
				ExhaustionPolicy: "Block", RequireHumanOversight: false,
			},
		},
		Defaults: Defaults{
			MinIntentConfidence:      0.5,
			BlockThreshold:           80,
			ReviewThreshold:          50,
			MaxConcurrentCommitments: 32,
			RoleOnlyFallbackAllowed:  false,
			DefaultGovernanceTier:    "T0",
		},
	}
}
