// Package engine orchestrates a single audit decision: validate the request,
// evaluate guardrails, resolve the decision and commit a hash-chained record.
//
// One Engine is constructed by the process entry point and shared by every
// handler. Evaluation and resolution are pure and run outside the ledger
// lock; hashing, the durable write and the commit run inside it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
	"github.com/Mindburn-Labs/dil/pkg/guardrail"
	"github.com/Mindburn-Labs/dil/pkg/ledger"
	"github.com/Mindburn-Labs/dil/pkg/observability"
)

// ServiceName is reported by health checks.
const ServiceName = "DIL API"

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Logger    *slog.Logger
	Telemetry *observability.Provider
	Clock     func() time.Time
}

// Engine is safe for concurrent use.
type Engine struct {
	ledger    *ledger.Store
	logger    *slog.Logger
	telemetry *observability.Provider
	clock     func() time.Time
}

// New wires an engine around an already opened ledger.
func New(store *ledger.Store, opts Options) (*Engine, error) {
	if store == nil {
		return nil, errors.New("engine: ledger store is required")
	}
	e := &Engine{
		ledger:    store,
		logger:    opts.Logger,
		telemetry: opts.Telemetry,
		clock:     opts.Clock,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "engine")
	if e.telemetry == nil {
		p, err := observability.New(context.Background(), &observability.Config{Enabled: false})
		if err != nil {
			return nil, err
		}
		e.telemetry = p
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e, nil
}

// Result is the outcome of one successful Process call.
type Result struct {
	RequestID      string                `json:"request_id"`
	Decision       guardrail.Decision    `json:"decision"`
	Reason         string                `json:"reason"`
	Amount         float64               `json:"amount"`
	AIRiskScore    float64               `json:"ai_risk_score"`
	ContentHash    string                `json:"content_hash"`
	PreviousHash   *string               `json:"previous_hash"`
	GovernanceHash string                `json:"governance_hash"`
	Timestamp      string                `json:"timestamp"`
	ChainDepth     int                   `json:"chain_depth"`
	Violations     []guardrail.Violation `json:"-"`
	Record         contracts.AuditRecord `json:"-"`
}

// Process validates req, decides it and commits the record. Validation
// errors match contracts.ErrValidation; commit failures match
// ledger.ErrHashing, ledger.ErrStore or ledger.ErrDuplicateRequestID and
// leave the ledger unchanged.
func (e *Engine) Process(ctx context.Context, req contracts.AuditRequest) (res *Result, err error) {
	ctx, done := e.telemetry.TrackOperation(ctx, "audit.process")
	defer func() { done(err) }()

	req = req.Normalize(e.clock())
	if err := req.Validate(); err != nil {
		e.logger.InfoContext(ctx, "audit request rejected",
			"request_id", req.RequestID,
			"error", err,
		)
		return nil, err
	}

	violations := guardrail.Evaluate(req.Amount, req.AIRiskScore)
	decision, reason := guardrail.Resolve(violations, req.Amount, req.AIRiskScore)
	e.logViolations(ctx, req.RequestID, violations)

	rec, depth, err := e.ledger.Append(ctx, contracts.RecordFields{
		RequestID:   req.RequestID,
		UserID:      req.UserID,
		Amount:      req.Amount,
		AIRiskScore: req.AIRiskScore,
		Decision:    decision.String(),
		Reason:      reason,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "audit commit failed",
			"request_id", req.RequestID,
			"decision", decision.String(),
			"error", err,
		)
		return nil, fmt.Errorf("commit %s: %w", req.RequestID, err)
	}

	e.telemetry.RecordDecision(ctx, rec.Decision, depth)
	e.logger.InfoContext(ctx, "audit processed",
		"request_id", rec.RequestID,
		"user_id", rec.UserID,
		"decision", rec.Decision,
		"chain_depth", depth,
		"content_hash", rec.ContentHash[:16],
	)

	return &Result{
		RequestID:      rec.RequestID,
		Decision:       decision,
		Reason:         rec.Reason,
		Amount:         rec.Amount,
		AIRiskScore:    rec.AIRiskScore,
		ContentHash:    rec.ContentHash,
		PreviousHash:   rec.PreviousHash,
		GovernanceHash: rec.GovernanceHash,
		Timestamp:      rec.Timestamp,
		ChainDepth:     depth,
		Violations:     violations,
		Record:         rec,
	}, nil
}

func (e *Engine) logViolations(ctx context.Context, requestID string, violations []guardrail.Violation) {
	for _, v := range violations {
		level := slog.LevelInfo
		if v.Severity == guardrail.SeverityHard {
			level = slog.LevelWarn
		}
		e.logger.Log(ctx, level, "guardrail violation",
			"request_id", requestID,
			"rule", v.Rule.String(),
			"severity", v.Severity.String(),
			"threshold", v.Threshold,
			"actual", v.Actual,
		)
	}
}
