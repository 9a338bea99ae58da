package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/dil/pkg/archive"
	"github.com/Mindburn-Labs/dil/pkg/crypto"
	"github.com/Mindburn-Labs/dil/pkg/engine"
	"github.com/Mindburn-Labs/dil/pkg/ledger"
)

// runVerifyCmd implements `dil verify`.
//
// Without --bundle it re-verifies the configured ledger mirror. With --bundle
// it verifies an exported bundle (directory, file://, s3:// or gs://).
//
// Exit codes:
//
//	0 = verification passed
//	1 = verification failed
//	2 = usage or configuration error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		bundle     string
		jsonOutput bool
	)

	cmd.StringVar(&bundle, "bundle", "", "Bundle location to verify (default: configured ledger)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output results as JSON to stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg, ok := loadConfig(stderr)
	if !ok {
		return 2
	}
	hasher, err := crypto.NewRecordHasher(cfg.Secret())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	ctx := context.Background()

	report := map[string]any{}
	var verr error
	if bundle != "" {
		report["bundle"] = bundle
		verr = verifyBundle(ctx, bundle, hasher, report)
	} else {
		report["backend"] = cfg.Ledger.Backend
		var lgr *ledger.Store
		var closer io.Closer
		lgr, closer, verr = openLedger(ctx, cfg, hasher)
		if verr == nil {
			defer func() { _ = closer.Close() }()
			if tip := lgr.TipHash(); tip != nil {
				report["tip_hash"] = *tip
			}
			var eng *engine.Engine
			if eng, verr = engine.New(lgr, engine.Options{Logger: newLogger(cfg, stderr)}); verr == nil {
				report["record_count"] = eng.Size()
				verr = eng.Verify(ctx)
			}
		}
	}

	report["valid"] = verr == nil
	if verr != nil {
		report["error"] = verr.Error()
		var ie *ledger.IntegrityError
		if errors.As(verr, &ie) {
			report["broken_index"] = ie.Index
		}
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else if verr != nil {
		_, _ = fmt.Fprintf(stderr, "%sVerification failed:%s %v\n", ColorRed, ColorReset, verr)
	} else {
		_, _ = fmt.Fprintf(stdout, "%sLedger verified%s: %v records\n", ColorGreen, ColorReset, report["record_count"])
		if tip, ok := report["tip_hash"]; ok {
			_, _ = fmt.Fprintf(stdout, "   Tip: %s\n", tip)
		}
	}

	if verr != nil {
		return 1
	}
	return 0
}

func verifyBundle(ctx context.Context, location string, hasher crypto.Hasher, report map[string]any) error {
	src, err := archive.OpenSink(ctx, location)
	if err != nil {
		return err
	}
	m, err := archive.Verify(ctx, src, hasher)
	if m != nil {
		report["bundle_id"] = m.BundleID
		report["format_version"] = m.FormatVersion
		report["record_count"] = m.RecordCount
		report["exported_at"] = m.ExportedAt
		if m.TipHash != nil {
			report["tip_hash"] = *m.TipHash
		}
	}
	return err
}
