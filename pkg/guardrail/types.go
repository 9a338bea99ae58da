package guardrail

import "fmt"

// Fixed thresholds.
const (
	AmountHardLimit = 1_000_000.0
	AmountSoftLimit = 100_000.0
	RiskHardLimit   = 0.5
	RiskSoftLimit   = 0.7
)

// Severity classifies a violation.
type Severity uint8

const (
	// SeverityHard unconditionally blocks the transaction.
	SeverityHard Severity = iota + 1
	// SeveritySoft flags the transaction for review.
	SeveritySoft
)

func (s Severity) String() string {
	switch s {
	case SeverityHard:
		return "HARD"
	case SeveritySoft:
		return "SOFT"
	default:
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Rule identifies a guardrail. The declaration order is the evaluation order.
type Rule uint8

const (
	RuleAmountHardLimit Rule = iota + 1
	RuleRiskHardLimit
	RuleAmountSoftLimit
	RuleRiskSoftLimit
)

// Rules lists every guardrail in evaluation order.
var Rules = []Rule{RuleAmountHardLimit, RuleRiskHardLimit, RuleAmountSoftLimit, RuleRiskSoftLimit}

func (r Rule) String() string {
	switch r {
	case RuleAmountHardLimit:
		return "AMOUNT_HARD_LIMIT"
	case RuleRiskHardLimit:
		return "RISK_HARD_LIMIT"
	case RuleAmountSoftLimit:
		return "AMOUNT_SOFT_LIMIT"
	case RuleRiskSoftLimit:
		return "RISK_SOFT_LIMIT"
	default:
		return fmt.Sprintf("Rule(%d)", uint8(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Severity returns the fixed severity of the rule.
func (r Rule) Severity() Severity {
	switch r {
	case RuleAmountHardLimit, RuleRiskHardLimit:
		return SeverityHard
	default:
		return SeveritySoft
	}
}

// Threshold returns the limit the rule reports in its violation.
func (r Rule) Threshold() float64 {
	switch r {
	case RuleAmountHardLimit:
		return AmountHardLimit
	case RuleRiskHardLimit:
		return RiskHardLimit
	case RuleAmountSoftLimit:
		return AmountSoftLimit
	case RuleRiskSoftLimit:
		return RiskSoftLimit
	default:
		return 0
	}
}

// Violation is a single guardrail breach. It is consumed by Resolve and never
// persisted on its own.
type Violation struct {
	Rule      Rule     `json:"rule"`
	Threshold float64  `json:"threshold"`
	Actual    float64  `json:"actual"`
	Severity  Severity `json:"severity"`
}

func newViolation(r Rule, actual float64) Violation {
	return Violation{
		Rule:      r,
		Threshold: r.Threshold(),
		Actual:    actual,
		Severity:  r.Severity(),
	}
}
