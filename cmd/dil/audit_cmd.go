package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
	"github.com/Mindburn-Labs/dil/pkg/crypto"
	"github.com/Mindburn-Labs/dil/pkg/engine"
)

// runAuditCmd implements `dil audit`: one decision against the configured
// ledger, printed as the same JSON the API returns.
func runAuditCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("audit", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		userID    string
		amount    float64
		risk      float64
		requestID string
		timestamp string
	)

	cmd.StringVar(&userID, "user", "", "User identifier (REQUIRED)")
	cmd.Float64Var(&amount, "amount", -1, "Transaction amount (REQUIRED)")
	cmd.Float64Var(&risk, "risk", -1, "AI risk score in [0, 1] (REQUIRED)")
	cmd.StringVar(&requestID, "id", "", "Request id (default: generated)")
	cmd.StringVar(&timestamp, "timestamp", "", "ISO-8601 timestamp (default: now)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if userID == "" || amount < 0 || risk < 0 {
		_, _ = fmt.Fprintln(stderr, "Error: --user, --amount and --risk are required")
		cmd.Usage()
		return 2
	}

	cfg, ok := loadConfig(stderr)
	if !ok {
		return 2
	}
	ctx := context.Background()

	hasher, err := crypto.NewRecordHasher(cfg.Secret())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	lgr, closer, err := openLedger(ctx, cfg, hasher)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = closer.Close() }()

	eng, err := engine.New(lgr, engine.Options{Logger: newLogger(cfg, stderr)})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	res, err := eng.Process(ctx, contracts.AuditRequest{
		UserID:      userID,
		Amount:      amount,
		AIRiskScore: risk,
		RequestID:   requestID,
		Timestamp:   timestamp,
	})
	if err != nil {
		if errors.Is(err, contracts.ErrValidation) {
			_, _ = fmt.Fprintf(stderr, "%sInvalid request:%s %v\n", ColorRed, ColorReset, err)
		} else {
			_, _ = fmt.Fprintf(stderr, "%sAudit failed:%s %v\n", ColorRed, ColorReset, err)
		}
		return 1
	}

	data, _ := json.MarshalIndent(res, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(data))
	return 0
}
