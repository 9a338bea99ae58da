package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mindburn-Labs/dil/pkg/engine"
)

func runHealthCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("health", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var addr string
	cmd.StringVar(&addr, "addr", "http://localhost:8080", "Base URL of the DIL API")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(addr, "/") + "/health")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	var report engine.HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		_, _ = fmt.Fprintf(stderr, "Health check failed: decode: %v\n", err)
		return 1
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = fmt.Fprintf(stderr, "Health check failed: status %d (%s, chain_integrity=%t)\n",
			resp.StatusCode, report.Status, report.ChainIntegrity)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "OK %s ledger_size=%d\n", report.Status, report.LedgerSize)
	return 0
}
