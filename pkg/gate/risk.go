package gate

import "github.com/accordant-systems/accord/pkg/models"

// DefaultRiskAssessor is a straightforward weighted-factor scorer over the
// declaration's amount, jurisdiction and model uncertainty, plus any
// coercion indicators. Counterparty and anomaly are not scored. Deployments with
// a fraud-model integration can supply their own RiskAssessor instead.
type DefaultRiskAssessor struct {
	HighRiskJurisdictions map[string]bool
}

func NewDefaultRiskAssessor(highRiskJurisdictions ...string) *DefaultRiskAssessor {
	set := make(map[string]bool, len(highRiskJurisdictions))
	for _, j := range highRiskJurisdictions {
		set[j] = true
	}
	return &DefaultRiskAssessor{HighRiskJurisdictions: set}
}

func (a *DefaultRiskAssessor) Assess(decl models.CommitmentDeclaration, coercion []models.CoercionIndicator) models.RiskReport {
	var factors []models.RiskFactor
	var reasons []string

	if decl.Amount != nil {
		value := float64(*decl.Amount)
		contribution := 0.0
		switch {
		case value > 1_000_000:
			contribution = 40
		case value > 100_000:
			contribution = 20
		case value > 10_000:
			contribution = 8
		}
		if contribution > 0 {
			factors = append(factors, models.RiskFactor{Name: "amount", Weight: 1.0, Value: contribution, Reason: "large declared amount"})
			reasons = append(reasons, "large declared amount")
		}
	}

	if decl.Jurisdiction != "" && a.HighRiskJurisdictions[decl.Jurisdiction] {
		factors = append(factors, models.RiskFactor{Name: "jurisdiction", Weight: 1.0, Value: 25, Reason: "high-risk jurisdiction"})
		reasons = append(reasons, "high-risk jurisdiction")
	}

	if decl.IntentConfidence < 0.6 {
		factors = append(factors, models.RiskFactor{Name: "model_uncertainty", Weight: 1.0, Value: 15, Reason: "low intent confidence"})
		reasons = append(reasons, "low intent confidence")
	}

	for _, ci := range coercion {
		factors = append(factors, models.RiskFactor{Name: "coercion:" + string(ci.Type), Weight: 1.0, Value: ci.Confidence * 30, Reason: ci.Description})
		reasons = append(reasons, ci.Description)
	}

	var score float64
	for _, f := range factors {
		score += f.Weight * f.Value
	}
	if score > 100 {
		score = 100
	}

	return models.RiskReport{
		Score:            int(score),
		FraudScore:       int(score),
		Reasons:          reasons,
		FactorBreakdown:  factors,
		CoercionFindings: coercion,
	}
}
