package guardrail

import "fmt"

// Decision is the outcome of a guardrail evaluation.
// Blocked > Flagged > Approved in severity.
type Decision uint8

const (
	Approved Decision = iota + 1
	Flagged
	Blocked
)

func (d Decision) String() string {
	switch d {
	case Approved:
		return "APPROVED"
	case Flagged:
		return "FLAGGED"
	case Blocked:
		return "BLOCKED"
	default:
		return fmt.Sprintf("Decision(%d)", uint8(d))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Decision) UnmarshalText(b []byte) error {
	parsed, err := ParseDecision(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDecision parses the string form stored in audit records.
func ParseDecision(s string) (Decision, error) {
	switch s {
	case "APPROVED":
		return Approved, nil
	case "FLAGGED":
		return Flagged, nil
	case "BLOCKED":
		return Blocked, nil
	default:
		return 0, fmt.Errorf("guardrail: unknown decision %q", s)
	}
}
