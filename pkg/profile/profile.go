// Package profile implements the Maximum Restriction Principle (spec §9,
// §4.2 "Maximum Restriction Principle (cross-profile interaction)"): when
// two worldlines with different recovery profiles interact, the effective
// rule for each dimension is the stricter of the two. The source's
// per-platform profile variants (Mapleverse, Finalverse, iBank) are
// configuration values, not types — this package treats a profile as an
// opaque bundle loaded from config.RecoveryProfileConfig and never
// specializes on Name.
package profile

import (
	"sort"

	"github.com/accordant-systems/accord/pkg/config"
	"github.com/accordant-systems/accord/pkg/models"
)

// Merged is the effective profile produced by combining two worldlines'
// recovery profiles for the duration of an interaction (spec §9: "The
// merged profile is used for the duration of the interaction").
type Merged struct {
	CouplingLimit         float64
	ConsentFloor          float64
	RiskClassCap          int
	AllowedEffectDomains  []string
	ExhaustionPolicy      models.ExhaustionPolicy
	RequireHumanOversight bool
}

// Merge combines a and b per dimension, each resolved to the stricter
// bound: lower numeric bounds, higher consent floor, intersection of
// allowed domains, stricter exhaustion behavior (Block > EmergencyDecouple
// > Queue > DegradeWeakest), and AND of "allow"-flags / OR of
// "require"-flags (spec §9).
func Merge(a, b *config.RecoveryProfileConfig) Merged {
	if a == nil && b == nil {
		return Merged{}
	}
	if a == nil {
		return Merge(b, b)
	}
	if b == nil {
		return Merge(a, a)
	}

	return Merged{
		CouplingLimit:         min(a.CouplingLimit, b.CouplingLimit),
		ConsentFloor:          max(a.ConsentFloor, b.ConsentFloor),
		RiskClassCap:          minInt(a.RiskClassCap, b.RiskClassCap),
		AllowedEffectDomains:  intersect(a.AllowedEffectDomains, b.AllowedEffectDomains),
		ExhaustionPolicy:      models.Stricter(models.ExhaustionPolicy(a.ExhaustionPolicy), models.ExhaustionPolicy(b.ExhaustionPolicy)),
		RequireHumanOversight: a.RequireHumanOversight || b.RequireHumanOversight,
	}
}

// intersect returns the domains common to both lists, in sorted order.
// A worldline whose profile permits ["payments", "chat"]
// interacting with one that permits ["chat", "trading"] is left with only
// "chat" — the stricter, narrower scope (spec §9 "intersection of allowed
// domains").
func intersect(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, d := range b {
		inB[d] = true
	}
	var out []string
	for _, d := range a {
		if inB[d] {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
