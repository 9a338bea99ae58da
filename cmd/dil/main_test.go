package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/dil/pkg/engine"
	"github.com/Mindburn-Labs/dil/pkg/guardrail"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(append([]string{"dil"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// fileLedgerEnv points configuration at a fresh JSONL ledger.
func fileLedgerEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	t.Setenv("DIL_CONFIG", "")
	t.Setenv("DIL_GOVERNANCE_SECRET", "cli-test-secret")
	t.Setenv("DIL_LEDGER_BACKEND", "file")
	t.Setenv("DIL_LEDGER_PATH", path)
	t.Setenv("LOG_LEVEL", "ERROR")
	return path
}

func auditJSON(t *testing.T, args ...string) engine.Result {
	t.Helper()
	code, out, errOut := run(t, append([]string{"audit"}, args...)...)
	require.Equal(t, 0, code, errOut)
	var res engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	return res
}

func TestRun_Help(t *testing.T) {
	code, out, _ := run(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "audit")
	assert.Contains(t, out, "export")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, errOut := run(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Unknown command: frobnicate")
}

func TestRun_DefaultsToServer(t *testing.T) {
	orig := startServer
	defer func() { startServer = orig }()

	calls := 0
	startServer = func(_, _ io.Writer) int {
		calls++
		return 0
	}

	code, _, _ := run(t)
	assert.Equal(t, 0, code)
	code, _, _ = run(t, "server")
	assert.Equal(t, 0, code)
	assert.Equal(t, 2, calls)
}

func TestAudit_ChainsAcrossInvocations(t *testing.T) {
	fileLedgerEnv(t)

	first := auditJSON(t, "--user", "user-001", "--amount", "5000", "--risk", "0.85")
	assert.Equal(t, guardrail.Approved, first.Decision)
	assert.Equal(t, "APPROVED: All guardrails passed (Amount: $5,000.00, Risk: 0.85)", first.Reason)
	assert.Equal(t, 1, first.ChainDepth)
	assert.Nil(t, first.PreviousHash)

	second := auditJSON(t, "--user", "user-002", "--amount", "150000", "--risk", "0.65")
	assert.Equal(t, guardrail.Flagged, second.Decision)
	assert.Equal(t, 2, second.ChainDepth)
	require.NotNil(t, second.PreviousHash)
	assert.Equal(t, first.ContentHash, *second.PreviousHash)

	third := auditJSON(t, "--user", "user-003", "--amount", "5000", "--risk", "0.2", "--id", "REQ-CLI00003")
	assert.Equal(t, guardrail.Blocked, third.Decision)
	assert.Equal(t, "BLOCKED: RISK_HARD_LIMIT (threshold: 0.5, actual: 0.2)", third.Reason)
	assert.Equal(t, "REQ-CLI00003", third.RequestID)
}

func TestAudit_DuplicateRequestID(t *testing.T) {
	fileLedgerEnv(t)
	auditJSON(t, "--user", "u", "--amount", "1", "--risk", "0.9", "--id", "REQ-DUP")

	code, _, errOut := run(t, "audit", "--user", "u", "--amount", "1", "--risk", "0.9", "--id", "REQ-DUP")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Audit failed")
}

func TestAudit_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		code int
	}{
		{"missing flags", nil, []string{"--user", "u"}, 2},
		{"bad flag", nil, []string{"--amount", "abc"}, 2},
		{"missing secret", map[string]string{"DIL_GOVERNANCE_SECRET": ""}, []string{"--user", "u", "--amount", "1", "--risk", "0.9"}, 2},
		{"amount over contract", nil, []string{"--user", "u", "--amount", "20000000", "--risk", "0.9"}, 1},
		{"risk over one", nil, []string{"--user", "u", "--amount", "1", "--risk", "1.5"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileLedgerEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			code, _, _ := run(t, append([]string{"audit"}, tt.args...)...)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestExportThenVerify(t *testing.T) {
	fileLedgerEnv(t)
	for _, user := range []string{"user-001", "user-002", "user-003"} {
		auditJSON(t, "--user", user, "--amount", "5000", "--risk", "0.85")
	}
	bundle := filepath.Join(t.TempDir(), "bundle")

	code, out, errOut := run(t, "export", "--dest", bundle, "--json")
	require.Equal(t, 0, code, errOut)
	var manifest map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &manifest))
	assert.Equal(t, "1.0.0", manifest["format_version"])
	assert.EqualValues(t, 3, manifest["record_count"])

	code, out, errOut = run(t, "verify", "--bundle", "file://"+bundle, "--json")
	require.Equal(t, 0, code, errOut)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, true, report["valid"])
	assert.Equal(t, manifest["bundle_id"], report["bundle_id"])

	code, _, errOut = run(t, "verify")
	assert.Equal(t, 0, code, errOut)
}

func TestVerify_DetectsTamperedMirror(t *testing.T) {
	path := fileLedgerEnv(t)
	auditJSON(t, "--user", "user-001", "--amount", "5000", "--risk", "0.85")
	auditJSON(t, "--user", "user-002", "--amount", "7000", "--risk", "0.85")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data = bytes.Replace(data, []byte(`"amount":7000`), []byte(`"amount":70`), 1)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	code, out, _ := run(t, "verify", "--json")
	assert.Equal(t, 1, code)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, false, report["valid"])
	assert.EqualValues(t, 1, report["broken_index"])

	code, _, errOut := run(t, "export", "--dest", t.TempDir())
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, errOut)
}

func TestExport_RequiresDest(t *testing.T) {
	fileLedgerEnv(t)
	code, _, errOut := run(t, "export")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "--dest is required")
}

func TestHealth(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(engine.HealthReport{Status: engine.StatusHealthy, Service: engine.ServiceName, LedgerSize: 4, ChainIntegrity: true})
	}))
	defer healthy.Close()

	code, out, _ := run(t, "health", "--addr", healthy.URL)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "ledger_size=4")

	degraded := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(engine.HealthReport{Status: engine.StatusDegraded, Service: engine.ServiceName})
	}))
	defer degraded.Close()

	code, _, errOut := run(t, "health", "--addr", degraded.URL)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "status 503")
}
