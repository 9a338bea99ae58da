package contracts

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requestIDPattern = regexp.MustCompile(`^REQ-[0-9A-F]{8}$`)

func TestNewAuditRequest_GeneratesIDAndTimestamp(t *testing.T) {
	req := NewAuditRequest("user-001", 5000, 0.85)

	assert.Regexp(t, requestIDPattern, req.RequestID)
	ts, err := ParseTimestamp(req.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
	assert.True(t, strings.HasSuffix(req.Timestamp, "Z"))
}

func TestNewRequestID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewRequestID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNormalize_KeepsSuppliedFields(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 34, 56, 789000000, time.UTC)
	req := AuditRequest{
		UserID:      "user-1",
		Amount:      10,
		AIRiskScore: 0.9,
		RequestID:   "REQ-CUSTOM01",
		Timestamp:   "2026-01-01T00:00:00Z",
	}.Normalize(now)

	assert.Equal(t, "REQ-CUSTOM01", req.RequestID)
	assert.Equal(t, "2026-01-01T00:00:00Z", req.Timestamp)

	generated := AuditRequest{UserID: "u"}.Normalize(now)
	assert.Equal(t, "2026-02-01T12:34:56.789000Z", generated.Timestamp)
	assert.Equal(t, generated, generated.Normalize(now.Add(time.Hour)))
}

func TestNormalize_NFC(t *testing.T) {
	decomposed := "Jose\u0301"
	req := AuditRequest{UserID: decomposed}.Normalize(time.Now())
	assert.Equal(t, "Jos\u00e9", req.UserID)
}

func TestValidate(t *testing.T) {
	valid := AuditRequest{UserID: "user-1", Amount: 5000, AIRiskScore: 0.85}

	tests := []struct {
		name  string
		mut   func(r *AuditRequest)
		field string
	}{
		{"valid", func(r *AuditRequest) {}, ""},
		{"zero amount", func(r *AuditRequest) { r.Amount = 0 }, ""},
		{"max amount", func(r *AuditRequest) { r.Amount = MaxAmount }, ""},
		{"risk bounds low", func(r *AuditRequest) { r.AIRiskScore = 0 }, ""},
		{"risk bounds high", func(r *AuditRequest) { r.AIRiskScore = 1 }, ""},
		{"empty user", func(r *AuditRequest) { r.UserID = "" }, "user_id"},
		{"blank user", func(r *AuditRequest) { r.UserID = "   " }, "user_id"},
		{"long user", func(r *AuditRequest) { r.UserID = strings.Repeat("a", 256) }, "user_id"},
		{"255 runes", func(r *AuditRequest) { r.UserID = strings.Repeat("\u00e9", 255) }, ""},
		{"negative amount", func(r *AuditRequest) { r.Amount = -0.01 }, "amount"},
		{"amount too large", func(r *AuditRequest) { r.Amount = MaxAmount + 1 }, "amount"},
		{"nan amount", func(r *AuditRequest) { r.Amount = math.NaN() }, "amount"},
		{"inf amount", func(r *AuditRequest) { r.Amount = math.Inf(1) }, "amount"},
		{"risk negative", func(r *AuditRequest) { r.AIRiskScore = -0.1 }, "ai_risk_score"},
		{"risk above one", func(r *AuditRequest) { r.AIRiskScore = 1.01 }, "ai_risk_score"},
		{"nan risk", func(r *AuditRequest) { r.AIRiskScore = math.NaN() }, "ai_risk_score"},
		{"request id with space", func(r *AuditRequest) { r.RequestID = "REQ 1" }, "request_id"},
		{"request id too long", func(r *AuditRequest) { r.RequestID = strings.Repeat("x", 129) }, "request_id"},
		{"bad timestamp", func(r *AuditRequest) { r.Timestamp = "yesterday" }, "timestamp"},
		{"naive timestamp", func(r *AuditRequest) { r.Timestamp = "2026-02-01T12:34:56.789000" }, ""},
		{"rfc3339 timestamp", func(r *AuditRequest) { r.Timestamp = "2026-02-01T12:34:56+02:00" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mut(&req)
			err := req.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestAuditRecord_CloneIsDeep(t *testing.T) {
	prev := "abc"
	rec := AuditRecord{RequestID: "REQ-1", PreviousHash: &prev}
	clone := rec.Clone()
	*clone.PreviousHash = "tampered"

	assert.Equal(t, "abc", rec.PrevHash())
	assert.Equal(t, "", AuditRecord{}.PrevHash())
}
