// Package guardrail applies the fixed threshold rules to a transaction and
// resolves the resulting violations into a decision.
//
// Both steps are pure: the same amount and risk score always yield the same
// violations, in the same order, and the same decision and reason string.
//
//	violations := guardrail.Evaluate(150_000, 0.65)
//	decision, reason := guardrail.Resolve(violations, 150_000, 0.65)
//	// decision == guardrail.Flagged
package guardrail
