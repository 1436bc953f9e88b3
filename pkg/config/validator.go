package config

import (
	"fmt"

	playground "github.com/go-playground/validator/v10"
)

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
	v   *playground.Validate
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg, v: playground.New()}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error). Order follows the dependency order of spec §2: capabilities
// have no dependencies, roles reference capabilities, policies reference
// roles via approvers, recovery profiles are independent.
func (v *Validator) ValidateAll() error {
	if err := v.validateCapabilities(); err != nil {
		return fmt.Errorf("capability validation failed: %w", err)
	}
	if err := v.validateRoles(); err != nil {
		return fmt.Errorf("role validation failed: %w", err)
	}
	if err := v.validatePolicies(); err != nil {
		return fmt.Errorf("policy validation failed: %w", err)
	}
	if err := v.validateRecoveryProfiles(); err != nil {
		return fmt.Errorf("recovery profile validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateCapabilities() error {
	for _, c := range v.cfg.CapabilityRegistry.All() {
		if err := v.v.Struct(c); err != nil {
			return NewValidationError("capability", c.ID, "", err)
		}
	}
	return nil
}

func (v *Validator) validateRoles() error {
	for _, r := range v.cfg.RoleRegistry.All() {
		if err := v.v.Struct(r); err != nil {
			return NewValidationError("role", r.ID, "", err)
		}
		for _, capID := range r.Capabilities {
			if _, err := v.cfg.CapabilityRegistry.Get(capID); err != nil {
				return NewValidationError("role", r.ID, "capabilities",
					fmt.Errorf("%w: %s", ErrInvalidReference, capID))
			}
		}
	}
	return nil
}

func (v *Validator) validatePolicies() error {
	for _, p := range v.cfg.PolicyRegistry.All() {
		if err := v.v.Struct(p); err != nil {
			return NewValidationError("policy", p.ID, "", err)
		}
		if p.Action == PolicyRequireApproval && len(p.Approvers) == 0 {
			return NewValidationError("policy", p.ID, "approvers",
				fmt.Errorf("%w: RequireApproval policy needs at least one approver", ErrMissingRequiredField))
		}
	}
	return nil
}

func (v *Validator) validateRecoveryProfiles() error {
	for _, p := range v.cfg.RecoveryRegistry.All() {
		if err := v.v.Struct(p); err != nil {
			return NewValidationError("recovery_profile", p.Name, "", err)
		}
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d.BlockThreshold > 0 && d.ReviewThreshold > 0 && d.ReviewThreshold > d.BlockThreshold {
		return NewValidationError("defaults", "", "review_threshold",
			fmt.Errorf("%w: review_threshold must be <= block_threshold", ErrInvalidValue))
	}
	return nil
}
