package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/Mindburn-Labs/dil/pkg/archive"
	"github.com/Mindburn-Labs/dil/pkg/crypto"
	"github.com/Mindburn-Labs/dil/pkg/engine"
)

// runExportCmd implements `dil export`. The ledger is verified before it is
// written out; a broken chain is never exported.
func runExportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dest       string
		jsonOutput bool
	)

	cmd.StringVar(&dest, "dest", "", "Bundle destination: DIR, file://DIR, s3://bucket/prefix or gs://bucket/prefix (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the manifest as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if dest == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --dest is required")
		cmd.Usage()
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
	if err := eng.Verify(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "%sRefusing to export:%s %v\n", ColorRed, ColorReset, err)
		return 1
	}

	sink, err := archive.OpenSink(ctx, dest)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	m, err := archive.Export(ctx, sink, eng.Records(), time.Now())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%sExport failed:%s %v\n", ColorRed, ColorReset, err)
		return 1
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(m, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		_, _ = fmt.Fprintf(stdout, "%sBundle exported%s: %s\n", ColorGreen, ColorReset, dest)
		_, _ = fmt.Fprintf(stdout, "   Bundle:  %s\n", m.BundleID)
		_, _ = fmt.Fprintf(stdout, "   Records: %d\n", m.RecordCount)
		_, _ = fmt.Fprintf(stdout, "   SHA-256: %s\n", m.LedgerSHA256)
	}
	return 0
}
