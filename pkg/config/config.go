// Package config loads the accountability runtime's policy bundles, role
// and capability registries, and recovery profiles.
//
// Per spec §9 ("Inheritance elimination"), platform-specific profiles
// (Mapleverse, Finalverse, iBank, ...) are configuration values, not Go
// types: the core never switches on a platform identity, it only consumes
// whatever PolicyBundle / RecoveryProfile was loaded at boot.
package config

// Config is the umbrella configuration object that encapsulates all
// registries and defaults. This is the primary object returned by
// Initialize() and used throughout the runtime.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// System-wide defaults
	Defaults *Defaults

	// Component registries
	PolicyRegistry     *PolicyRegistry
	RoleRegistry       *RoleRegistry
	CapabilityRegistry *CapabilityRegistry
	RecoveryRegistry   *RecoveryProfileRegistry
}

// Initialize is defined in loader.go

// Stats contains statistics about loaded configuration.
type Stats struct {
	Policies         int
	Roles            int
	Capabilities     int
	RecoveryProfiles int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	return Stats{
		Policies:         len(c.PolicyRegistry.All()),
		Roles:            len(c.RoleRegistry.All()),
		Capabilities:     len(c.CapabilityRegistry.All()),
		RecoveryProfiles: len(c.RecoveryRegistry.All()),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetPolicy retrieves a policy by id. This is a convenience method that
// wraps PolicyRegistry.Get().
func (c *Config) GetPolicy(id string) (*PolicyConfig, error) {
	return c.PolicyRegistry.Get(id)
}

// GetRole retrieves a role by id. This is a convenience method that wraps
// RoleRegistry.Get().
func (c *Config) GetRole(id string) (*RoleConfig, error) {
	return c.RoleRegistry.Get(id)
}

// GetCapability retrieves a capability by id. This is a convenience method
// that wraps CapabilityRegistry.Get().
func (c *Config) GetCapability(id string) (*CapabilityConfig, error) {
	return c.CapabilityRegistry.Get(id)
}

// GetRecoveryProfile retrieves a named recovery profile (an opaque
// platform-specific bundle — see pkg/profile for how two profiles merge
// under the Maximum Restriction Principle).
func (c *Config) GetRecoveryProfile(name string) (*RecoveryProfileConfig, error) {
	return c.RecoveryRegistry.Get(name)
}
