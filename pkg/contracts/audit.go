// Package contracts defines the request and record types shared by the
// guardrail engine, the audit ledger and its durable mirrors.
package contracts

// AuditRecord is the unit of ledger storage. A committed record is never
// mutated; PreviousHash is nil only for the first record of a ledger.
type AuditRecord struct {
	RequestID      string  `json:"request_id"`
	UserID         string  `json:"user_id"`
	Amount         float64 `json:"amount"`
	AIRiskScore    float64 `json:"ai_risk_score"`
	Decision       string  `json:"decision"`
	Reason         string  `json:"reason"`
	Timestamp      string  `json:"timestamp"`
	ContentHash    string  `json:"content_hash"`
	PreviousHash   *string `json:"previous_hash"`
	GovernanceHash string  `json:"governance_hash"`
}

// RecordFields are the decision-relevant fields covered by both the content
// hash and the governance hash. The previous hash links records but is not
// part of the hashed content.
type RecordFields struct {
	RequestID   string  `json:"request_id"`
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	AIRiskScore float64 `json:"ai_risk_score"`
	Decision    string  `json:"decision"`
	Reason      string  `json:"reason"`
	Timestamp   string  `json:"timestamp"`
}

// Fields extracts the hashed fields of the record.
func (r AuditRecord) Fields() RecordFields {
	return RecordFields{
		RequestID:   r.RequestID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		AIRiskScore: r.AIRiskScore,
		Decision:    r.Decision,
		Reason:      r.Reason,
		Timestamp:   r.Timestamp,
	}
}

// PrevHash returns the previous hash or "" for the first record.
func (r AuditRecord) PrevHash() string {
	if r.PreviousHash == nil {
		return ""
	}
	return *r.PreviousHash
}

// Clone returns a deep copy so callers can never reach ledger-owned memory.
func (r AuditRecord) Clone() AuditRecord {
	out := r
	if r.PreviousHash != nil {
		prev := *r.PreviousHash
		out.PreviousHash = &prev
	}
	return out
}
