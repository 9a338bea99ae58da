package contracts

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Contractual bounds of an AuditRequest.
const (
	MaxUserIDLength    = 255
	MaxRequestIDLength = 128
	MaxAmount          = 10_000_000.0
	MinRiskScore       = 0.0
	MaxRiskScore       = 1.0
)

// TimestampLayout is the format of engine-generated timestamps (UTC, microseconds).
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// naive ISO-8601 layouts accepted for caller-supplied timestamps.
var naiveTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// AuditRequest describes a transaction submitted for a guardrail decision.
type AuditRequest struct {
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	AIRiskScore float64 `json:"ai_risk_score"`
	RequestID   string  `json:"request_id,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// NewAuditRequest builds a request with a generated request id and a UTC
// capture timestamp.
func NewAuditRequest(userID string, amount, riskScore float64) AuditRequest {
	return AuditRequest{
		UserID:      userID,
		Amount:      amount,
		AIRiskScore: riskScore,
	}.Normalize(time.Now())
}

// NewRequestID returns an identifier of the form REQ-1A2B3C4D.
func NewRequestID() string {
	return "REQ-" + strings.ToUpper(uuid.NewString()[:8])
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Normalize returns a copy of r with the user id in Unicode NFC form and the
// request id and timestamp filled in when absent. It is idempotent.
func (r AuditRequest) Normalize(now time.Time) AuditRequest {
	r.UserID = norm.NFC.String(r.UserID)
	if r.RequestID == "" {
		r.RequestID = NewRequestID()
	}
	if r.Timestamp == "" {
		r.Timestamp = FormatTimestamp(now)
	}
	return r
}

// Validate checks the request against its contractual bounds. It returns a
// *ValidationError describing the first offending field.
func (r AuditRequest) Validate() error {
	switch {
	case !utf8.ValidString(r.UserID):
		return invalid("user_id", "must be valid UTF-8")
	case strings.TrimSpace(r.UserID) == "":
		return invalid("user_id", "must not be empty")
	case utf8.RuneCountInString(r.UserID) > MaxUserIDLength:
		return invalid("user_id", "must be at most 255 characters")
	}

	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return invalid("amount", "must be a finite number")
	}
	if r.Amount < 0 || r.Amount > MaxAmount {
		return invalid("amount", "must be between 0 and 10000000")
	}

	if math.IsNaN(r.AIRiskScore) || math.IsInf(r.AIRiskScore, 0) {
		return invalid("ai_risk_score", "must be a finite number")
	}
	if r.AIRiskScore < MinRiskScore || r.AIRiskScore > MaxRiskScore {
		return invalid("ai_risk_score", "must be between 0.0 and 1.0")
	}

	if r.RequestID != "" {
		if utf8.RuneCountInString(r.RequestID) > MaxRequestIDLength {
			return invalid("request_id", "must be at most 128 characters")
		}
		if strings.IndexFunc(r.RequestID, func(c rune) bool { return !unicode.IsPrint(c) || unicode.IsSpace(c) }) >= 0 {
			return invalid("request_id", "must not contain whitespace or control characters")
		}
	}

	if r.Timestamp != "" {
		if _, err := ParseTimestamp(r.Timestamp); err != nil {
			return invalid("timestamp", "must be an ISO-8601 timestamp")
		}
	}
	return nil
}

// ParseTimestamp accepts RFC 3339 timestamps and naive ISO-8601 timestamps,
// the latter interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	for _, layout := range naiveTimestampLayouts {
		if t, nerr := time.ParseInLocation(layout, s, time.UTC); nerr == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
