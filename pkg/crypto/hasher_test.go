package crypto

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
)

func approvedFields() contracts.RecordFields {
	return contracts.RecordFields{
		RequestID:   "REQ-00000001",
		UserID:      "user-001",
		Amount:      5000,
		AIRiskScore: 0.85,
		Decision:    "APPROVED",
		Reason:      "APPROVED: All guardrails passed (Amount: $5,000.00, Risk: 0.85)",
		Timestamp:   "2026-02-01T12:34:56.789000Z",
	}
}

func newTestHasher(t *testing.T) *RecordHasher {
	t.Helper()
	h, err := NewRecordHasher([]byte("test-secret"))
	require.NoError(t, err)
	return h
}

func TestNewRecordHasher_EmptySecret(t *testing.T) {
	_, err := NewRecordHasher(nil)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestNewRecordHasher_CopiesSecret(t *testing.T) {
	secret := []byte("test-secret")
	h, err := NewRecordHasher(secret)
	require.NoError(t, err)

	before, err := h.GovernanceHash(approvedFields())
	require.NoError(t, err)
	for i := range secret {
		secret[i] = 0
	}
	after, err := h.GovernanceHash(approvedFields())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCanonical_Bytes(t *testing.T) {
	b, err := Canonical(approvedFields())
	require.NoError(t, err)
	assert.Equal(t,
		`{"ai_risk_score":0.85,"amount":5000,"decision":"APPROVED",`+
			`"reason":"APPROVED: All guardrails passed (Amount: $5,000.00, Risk: 0.85)",`+
			`"request_id":"REQ-00000001","timestamp":"2026-02-01T12:34:56.789000Z","user_id":"user-001"}`,
		string(b))
}

func TestContentHash_KnownVector(t *testing.T) {
	h := newTestHasher(t)
	got, err := h.ContentHash(approvedFields())
	require.NoError(t, err)
	assert.Equal(t, "3654ea8d523d9731b2fa26e70e703ef7d1b7d5dfbc6966b7aea530ec7c385a43", got)
}

func TestGovernanceHash_KnownVector(t *testing.T) {
	h := newTestHasher(t)
	got, err := h.GovernanceHash(approvedFields())
	require.NoError(t, err)
	assert.Equal(t, "672fa26c99bb79c4ba4ebc3ed4a7f1c2fdb2c407699fb20b61919d04af2bcf9a", got)
}

func TestGovernanceHash_DependsOnSecret(t *testing.T) {
	a := newTestHasher(t)
	b, err := NewRecordHasher([]byte("other-secret"))
	require.NoError(t, err)

	ga, err := a.GovernanceHash(approvedFields())
	require.NoError(t, err)
	gb, err := b.GovernanceHash(approvedFields())
	require.NoError(t, err)
	assert.NotEqual(t, ga, gb)

	ca, err := a.ContentHash(approvedFields())
	require.NoError(t, err)
	cb, err := b.ContentHash(approvedFields())
	require.NoError(t, err)
	assert.Equal(t, ca, cb, "content hash is unkeyed")
}

func TestContentHash_EveryFieldCounts(t *testing.T) {
	h := newTestHasher(t)
	base, err := h.ContentHash(approvedFields())
	require.NoError(t, err)

	mutations := map[string]func(*contracts.RecordFields){
		"request_id":    func(f *contracts.RecordFields) { f.RequestID = "REQ-00000002" },
		"user_id":       func(f *contracts.RecordFields) { f.UserID = "user-002" },
		"amount":        func(f *contracts.RecordFields) { f.Amount = 5000.01 },
		"ai_risk_score": func(f *contracts.RecordFields) { f.AIRiskScore = 0.86 },
		"decision":      func(f *contracts.RecordFields) { f.Decision = "FLAGGED" },
		"reason":        func(f *contracts.RecordFields) { f.Reason += " " },
		"timestamp":     func(f *contracts.RecordFields) { f.Timestamp = "2026-02-01T12:34:56.789001Z" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			f := approvedFields()
			mutate(&f)
			got, err := h.ContentHash(f)
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestHashes_NonFiniteNumbers(t *testing.T) {
	h := newTestHasher(t)

	f := approvedFields()
	f.Amount = math.NaN()
	_, err := h.ContentHash(f)
	assert.Error(t, err)

	f = approvedFields()
	f.AIRiskScore = math.Inf(-1)
	_, err = h.GovernanceHash(f)
	assert.Error(t, err)
}
