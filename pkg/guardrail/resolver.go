package guardrail

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Resolve maps violations to a decision and a deterministic reason.
//
// Any hard violation blocks, listing only the hard violations. Otherwise any
// soft violation flags, listing only the soft ones. With no violations the
// reason summarizes amount and riskScore.
func Resolve(violations []Violation, amount, riskScore float64) (Decision, string) {
	var hard, soft []Violation
	for _, v := range violations {
		switch v.Severity {
		case SeverityHard:
			hard = append(hard, v)
		case SeveritySoft:
			soft = append(soft, v)
		}
	}

	if len(hard) > 0 {
		return Blocked, "BLOCKED: " + joinViolations(hard)
	}
	if len(soft) > 0 {
		return Flagged, "FLAGGED: Requires review - " + joinViolations(soft)
	}

	p := message.NewPrinter(language.English)
	return Approved, p.Sprintf("APPROVED: All guardrails passed (Amount: $%.2f, Risk: %.2f)", amount, riskScore)
}

func joinViolations(vs []Violation) string {
	var b strings.Builder
	for i, v := range vs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(v.Rule.String())
		b.WriteString(" (threshold: ")
		b.WriteString(formatNumber(v.Threshold))
		b.WriteString(", actual: ")
		b.WriteString(formatNumber(v.Actual))
		b.WriteString(")")
	}
	return b.String()
}

// formatNumber prints the shortest decimal that round-trips, keeping a
// trailing ".0" on integral values.
func formatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
