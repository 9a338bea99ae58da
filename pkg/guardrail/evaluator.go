package guardrail

// Evaluate checks amount and riskScore against every guardrail and returns
// the violations in rule order. Range checking is the caller's job.
func Evaluate(amount, riskScore float64) []Violation {
	violations := make([]Violation, 0, 2)

	if amount > AmountHardLimit {
		violations = append(violations, newViolation(RuleAmountHardLimit, amount))
	}
	if riskScore < RiskHardLimit {
		violations = append(violations, newViolation(RuleRiskHardLimit, riskScore))
	}
	if amount > AmountSoftLimit && amount <= AmountHardLimit {
		violations = append(violations, newViolation(RuleAmountSoftLimit, amount))
	}
	if riskScore >= RiskHardLimit && riskScore < RiskSoftLimit {
		violations = append(violations, newViolation(RuleRiskSoftLimit, riskScore))
	}

	return violations
}
