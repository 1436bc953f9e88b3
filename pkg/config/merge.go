package config

// mergeCapabilities merges built-in and user-defined capability definitions.
// User-defined capabilities override built-in ones with the same id.
func mergeCapabilities(builtin, user map[string]CapabilityConfig) map[string]*CapabilityConfig {
	result := make(map[string]*CapabilityConfig)
	for id, c := range builtin {
		cc := c
		result[id] = &cc
	}
	for id, c := range user {
		cc := c
		result[id] = &cc
	}
	return result
}

// mergeRoles merges built-in and user-defined role definitions.
// User-defined roles override built-in ones with the same id.
func mergeRoles(builtin, user map[string]RoleConfig) map[string]*RoleConfig {
	result := make(map[string]*RoleConfig)
	for id, r := range builtin {
		rc := r
		result[id] = &rc
	}
	for id, r := range user {
		rc := r
		result[id] = &rc
	}
	return result
}

// mergePolicies merges the built-in constitutional policy bundle with
// user-defined policies. Constitutional built-in policies are never
// overridden by a user-defined entry with the same id (§4.5: "constitutional
// policies are always evaluated first and cannot be overridden").
func mergePolicies(builtin, user map[string]PolicyConfig) map[string]*PolicyConfig {
	result := make(map[string]*PolicyConfig)
	for id, p := range builtin {
		pc := p
		result[id] = &pc
	}
	for id, p := range user {
		if existing, ok := result[id]; ok && existing.Constitutional {
			continue
		}
		pc := p
		result[id] = &pc
	}
	return result
}

// mergeRecoveryProfiles merges built-in and user-defined recovery profiles.
func mergeRecoveryProfiles(builtin, user map[string]RecoveryProfileConfig) map[string]*RecoveryProfileConfig {
	result := make(map[string]*RecoveryProfileConfig)
	for name, p := range builtin {
		pc := p
		result[name] = &pc
	}
	for name, p := range user {
		pc := p
		result[name] = &pc
	}
	return result
}
