package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rules(vs []Violation) []Rule {
	out := make([]Rule, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Rule)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		risk   float64
		want   []Rule
	}{
		{"all clear", 5000, 0.85, []Rule{}},
		{"both soft", 150_000, 0.65, []Rule{RuleAmountSoftLimit, RuleRiskSoftLimit}},
		{"both hard", 2_000_000, 0.3, []Rule{RuleAmountHardLimit, RuleRiskHardLimit}},
		{"amount hard risk soft", 2_000_000, 0.6, []Rule{RuleAmountHardLimit, RuleRiskSoftLimit}},
		{"risk hard amount soft", 500_000, 0.1, []Rule{RuleRiskHardLimit, RuleAmountSoftLimit}},
		{"amount at soft limit", 100_000, 0.9, []Rule{}},
		{"amount just above soft limit", 100_000.01, 0.9, []Rule{RuleAmountSoftLimit}},
		{"amount at hard limit is soft", 1_000_000, 0.9, []Rule{RuleAmountSoftLimit}},
		{"amount just above hard limit", 1_000_000.01, 0.9, []Rule{RuleAmountHardLimit}},
		{"risk at hard limit is soft", 1, 0.5, []Rule{RuleRiskSoftLimit}},
		{"risk just below hard limit", 1, 0.4999, []Rule{RuleRiskHardLimit}},
		{"risk at soft limit", 1, 0.7, []Rule{}},
		{"zero everything", 0, 0, []Rule{RuleRiskHardLimit}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.amount, tt.risk)
			assert.Equal(t, tt.want, rules(got))
		})
	}
}

func TestEvaluate_ViolationDetails(t *testing.T) {
	got := Evaluate(2_000_000, 0.3)

	assert.Equal(t, []Violation{
		{Rule: RuleAmountHardLimit, Threshold: AmountHardLimit, Actual: 2_000_000, Severity: SeverityHard},
		{Rule: RuleRiskHardLimit, Threshold: RiskHardLimit, Actual: 0.3, Severity: SeverityHard},
	}, got)
}

func TestRule_Metadata(t *testing.T) {
	assert.Equal(t, []string{"AMOUNT_HARD_LIMIT", "RISK_HARD_LIMIT", "AMOUNT_SOFT_LIMIT", "RISK_SOFT_LIMIT"},
		func() []string {
			var names []string
			for _, r := range Rules {
				names = append(names, r.String())
			}
			return names
		}())
	assert.Equal(t, SeverityHard, RuleRiskHardLimit.Severity())
	assert.Equal(t, SeveritySoft, RuleAmountSoftLimit.Severity())
	assert.Equal(t, 0.7, RuleRiskSoftLimit.Threshold())
	assert.Equal(t, "SOFT", SeveritySoft.String())
}
