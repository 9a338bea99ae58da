package observability

import "go.opentelemetry.io/otel/attribute"

// Span and metric attribute keys.
var (
	AttrOperation  = attribute.Key("dil.operation")
	AttrRequestID  = attribute.Key("dil.request.id")
	AttrUserID     = attribute.Key("dil.user.id")
	AttrDecision   = attribute.Key("dil.decision")
	AttrChainDepth = attribute.Key("dil.ledger.depth")
	AttrViolations = attribute.Key("dil.guardrail.violations")
)
