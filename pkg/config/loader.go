package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AccordYAMLConfig represents the complete accord.yaml file structure:
// roles, capabilities, the policy bundle, recovery profiles, and defaults.
type AccordYAMLConfig struct {
	Capabilities     map[string]CapabilityConfig       `yaml:"capabilities"`
	Roles            map[string]RoleConfig             `yaml:"roles"`
	Policies         map[string]PolicyConfig           `yaml:"policies"`
	RecoveryProfiles map[string]RecoveryProfileConfig  `yaml:"recovery_profiles"`
	Defaults         *Defaults                         `yaml:"defaults"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load accord.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined components (user overrides built-in)
//  5. Build in-memory registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing accountability runtime configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"policies", stats.Policies,
		"roles", stats.Roles,
		"capabilities", stats.Capabilities,
		"recovery_profiles", stats.RecoveryProfiles)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	user, err := loader.loadAccordYAML()
	if err != nil {
		return nil, NewLoadError("accord.yaml", err)
	}

	builtin := GetBuiltinConfig()

	capabilities := mergeCapabilities(builtin.Capabilities, user.Capabilities)
	roles := mergeRoles(builtin.Roles, user.Roles)
	policies := mergePolicies(builtin.Policies, user.Policies)
	recoveryProfiles := mergeRecoveryProfiles(builtin.RecoveryProfiles, user.RecoveryProfiles)

	capReg := NewCapabilityRegistry()
	for _, c := range capabilities {
		capReg.Add(c)
	}
	roleReg := NewRoleRegistry()
	for _, r := range roles {
		roleReg.Add(r)
	}
	policyReg := NewPolicyRegistry()
	for _, p := range policies {
		policyReg.Add(p)
	}
	recoveryReg := NewRecoveryProfileRegistry()
	for _, p := range recoveryProfiles {
		recoveryReg.Add(p)
	}

	defaults := user.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	applyBuiltinDefaults(defaults, builtin.Defaults)

	return &Config{
		configDir:          configDir,
		Defaults:           defaults,
		PolicyRegistry:     policyReg,
		RoleRegistry:       roleReg,
		CapabilityRegistry: capReg,
		RecoveryRegistry:   recoveryReg,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	v := NewValidator(cfg)
	return v.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadAccordYAML() (*AccordYAMLConfig, error) {
	var cfg AccordYAMLConfig
	cfg.Capabilities = make(map[string]CapabilityConfig)
	cfg.Roles = make(map[string]RoleConfig)
	cfg.Policies = make(map[string]PolicyConfig)
	cfg.RecoveryProfiles = make(map[string]RecoveryProfileConfig)

	if err := l.loadYAML("accord.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyBuiltinDefaults(d *Defaults, builtin Defaults) {
	if d.MinIntentConfidence == 0 {
		d.MinIntentConfidence = builtin.MinIntentConfidence
	}
	if d.BlockThreshold == 0 {
		d.BlockThreshold = builtin.BlockThreshold
	}
	if d.ReviewThreshold == 0 {
		d.ReviewThreshold = builtin.ReviewThreshold
	}
	if d.MaxConcurrentCommitments == 0 {
		d.MaxConcurrentCommitments = builtin.MaxConcurrentCommitments
	}
	if d.DefaultGovernanceTier == "" {
		d.DefaultGovernanceTier = builtin.DefaultGovernanceTier
	}
}
