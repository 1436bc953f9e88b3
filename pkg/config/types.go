package config

import "fmt"

// ActionKind is the closed set of action types a Capability can cover
// (spec §3, Capability.action_type).
type ActionKind string

const (
	ActionExecute   ActionKind = "Execute"
	ActionAudit     ActionKind = "Audit"
	ActionRead      ActionKind = "Read"
	ActionConfigure ActionKind = "Configure"
	ActionGovern    ActionKind = "Govern"
)

// CapabilityConfig is the loaded form of spec §3 Capability.
type CapabilityConfig struct {
	ID          string     `yaml:"id" validate:"required"`
	ActionType  ActionKind `yaml:"action_type" validate:"required"`
	Description string     `yaml:"description"`
}

// RoleConfig is the loaded form of spec §3 Role.
type RoleConfig struct {
	ID           string   `yaml:"id" validate:"required"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Capabilities []string `yaml:"capabilities"`
}

// PolicyAction mirrors spec §4.5 stage 4's action enum.
type PolicyAction string

const (
	PolicyApprove         PolicyAction = "Approve"
	PolicyDeny            PolicyAction = "Deny"
	PolicyRequireApproval PolicyAction = "RequireApproval"
	PolicyHold            PolicyAction = "Hold"
)

// PolicyConfig is the loaded form of spec §4.5 stage 4's policy bundle entry.
type PolicyConfig struct {
	ID            string       `yaml:"id" validate:"required"`
	Condition     string       `yaml:"condition"` // opaque expression, evaluated by pkg/gate
	Action        PolicyAction `yaml:"action" validate:"required"`
	Approvers     []string     `yaml:"approvers,omitempty"`
	Priority      int          `yaml:"priority"`
	Constitutional bool        `yaml:"constitutional"`
}

// RecoveryProfileConfig is an opaque, platform-specific profile bundle
// (Mapleverse / Finalverse / iBank in the original system) consumed by
// pkg/profile's Maximum Restriction Principle merge and by the Attention
// Allocator's exhaustion policy selection. The core never interprets Name.
type RecoveryProfileConfig struct {
	Name                  string            `yaml:"name" validate:"required"`
	CouplingLimit         float64           `yaml:"coupling_limit" validate:"min=0,max=1"`
	ConsentFloor          float64           `yaml:"consent_floor" validate:"min=0,max=1"`
	RiskClassCap          int               `yaml:"risk_class_cap" validate:"min=0,max=100"`
	AllowedEffectDomains  []string          `yaml:"allowed_effect_domains"`
	ExhaustionPolicy      string            `yaml:"exhaustion_policy" validate:"oneof=Block Queue EmergencyDecouple DegradeWeakest"`
	RequireHumanOversight bool              `yaml:"require_human_oversight"`
	Extra                 map[string]string `yaml:"extra,omitempty"`
}

// --- Registries ---

// PolicyRegistry holds the ordered policy bundle.
type PolicyRegistry struct {
	byID map[string]*PolicyConfig
}

func NewPolicyRegistry() *PolicyRegistry { return &PolicyRegistry{byID: map[string]*PolicyConfig{}} }

func (r *PolicyRegistry) Add(p *PolicyConfig) { r.byID[p.ID] = p }

func (r *PolicyRegistry) Get(id string) (*PolicyConfig, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, id)
	}
	return p, nil
}

func (r *PolicyRegistry) All() []*PolicyConfig {
	out := make([]*PolicyConfig, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}

// RoleRegistry holds all known roles.
type RoleRegistry struct {
	byID map[string]*RoleConfig
}

func NewRoleRegistry() *RoleRegistry { return &RoleRegistry{byID: map[string]*RoleConfig{}} }

func (r *RoleRegistry) Add(role *RoleConfig) { r.byID[role.ID] = role }

func (r *RoleRegistry) Get(id string) (*RoleConfig, error) {
	role, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, id)
	}
	return role, nil
}

func (r *RoleRegistry) All() []*RoleConfig {
	out := make([]*RoleConfig, 0, len(r.byID))
	for _, role := range r.byID {
		out = append(out, role)
	}
	return out
}

// RolesWithCapability returns every role that grants the given capability.
func (r *RoleRegistry) RolesWithCapability(capID string) []*RoleConfig {
	var out []*RoleConfig
	for _, role := range r.byID {
		for _, c := range role.Capabilities {
			if c == capID {
				out = append(out, role)
				break
			}
		}
	}
	return out
}

// CapabilityRegistry holds all known capabilities.
type CapabilityRegistry struct {
	byID map[string]*CapabilityConfig
}

func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{byID: map[string]*CapabilityConfig{}}
}

func (r *CapabilityRegistry) Add(c *CapabilityConfig) { r.byID[c.ID] = c }

func (r *CapabilityRegistry) Get(id string) (*CapabilityConfig, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityNotFound, id)
	}
	return c, nil
}

func (r *CapabilityRegistry) All() []*CapabilityConfig {
	out := make([]*CapabilityConfig, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}

// ByActionType returns every capability matching the given action type.
func (r *CapabilityRegistry) ByActionType(kind ActionKind) []*CapabilityConfig {
	var out []*CapabilityConfig
	for _, c := range r.byID {
		if c.ActionType == kind {
			out = append(out, c)
		}
	}
	return out
}

// RecoveryProfileRegistry holds named recovery/platform profiles.
type RecoveryProfileRegistry struct {
	byName map[string]*RecoveryProfileConfig
}

func NewRecoveryProfileRegistry() *RecoveryProfileRegistry {
	return &RecoveryProfileRegistry{byName: map[string]*RecoveryProfileConfig{}}
}

func (r *RecoveryProfileRegistry) Add(p *RecoveryProfileConfig) { r.byName[p.Name] = p }

func (r *RecoveryProfileRegistry) Get(name string) (*RecoveryProfileConfig, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecoveryProfileNotFound, name)
	}
	return p, nil
}

func (r *RecoveryProfileRegistry) All() []*RecoveryProfileConfig {
	out := make([]*RecoveryProfileConfig, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p)
	}
	return out
}
