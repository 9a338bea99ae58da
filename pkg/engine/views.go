package engine

import (
	"context"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
)

// LedgerView is the ledger query result.
type LedgerView struct {
	Records        []contracts.AuditRecord `json:"records"`
	TotalCount     int                     `json:"total_count"`
	ChainIntegrity bool                    `json:"chain_integrity"`
	CurrentHash    *string                 `json:"current_hash"`
}

// Ledger returns the last limit records (all when limit <= 0) with the total
// count and the integrity of the same ledger state.
func (e *Engine) Ledger(ctx context.Context, limit int) LedgerView {
	snap := e.ledger.Snapshot(limit)
	if snap.Integrity != nil {
		e.alarm(ctx, snap.Integrity)
	}
	return LedgerView{
		Records:        snap.Records,
		TotalCount:     snap.Total,
		ChainIntegrity: snap.Integrity == nil,
		CurrentHash:    snap.TipHash,
	}
}

// Health statuses.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// HealthReport is the health/introspection result.
type HealthReport struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	LedgerSize     int    `json:"ledger_size"`
	ChainIntegrity bool   `json:"chain_integrity"`
}

// Health verifies the full chain. A failed verification is a hard alarm:
// it is logged at ERROR and reported as degraded.
func (e *Engine) Health(ctx context.Context) HealthReport {
	size, err := e.ledger.Inspect()
	report := HealthReport{
		Status:         StatusHealthy,
		Service:        ServiceName,
		LedgerSize:     size,
		ChainIntegrity: err == nil,
	}
	if err != nil {
		e.alarm(ctx, err)
		report.Status = StatusDegraded
	}
	return report
}

// Verify runs a full chain verification and returns the first break.
func (e *Engine) Verify(ctx context.Context) error {
	ctx, done := e.telemetry.TrackOperation(ctx, "ledger.verify")
	err := e.ledger.Verify()
	done(err)
	if err != nil {
		e.alarm(ctx, err)
	}
	return err
}

// Record looks up one committed record. Unknown ids match ledger.ErrNotFound.
func (e *Engine) Record(_ context.Context, requestID string) (contracts.AuditRecord, error) {
	return e.ledger.Get(requestID)
}

// Records returns a copy of the whole ledger.
func (e *Engine) Records() []contracts.AuditRecord {
	return e.ledger.Records()
}

// Size returns the current chain depth.
func (e *Engine) Size() int {
	return e.ledger.Size()
}

func (e *Engine) alarm(ctx context.Context, err error) {
	e.logger.ErrorContext(ctx, "ledger integrity check failed", "error", err)
}
