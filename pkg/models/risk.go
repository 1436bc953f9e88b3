package models

// RiskFactor is one named contributor to a RiskReport.score, kept separate
// so a reviewer can replay the decision (spec §9 "Ambiguity preserved
// deliberately").
type RiskFactor struct {
	Name   string
	Weight float64
	Value  float64 // 0..100 contribution before weighting
	Reason string
}

// RiskReport is spec §4.5 stage 5's explainable output.
type RiskReport struct {
	Score            int // 0..100
	FraudScore       int
	Reasons          []string
	FactorBreakdown  []RiskFactor
	CoercionFindings []CoercionIndicator
}
