package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
	"github.com/Mindburn-Labs/dil/pkg/crypto"
	"github.com/Mindburn-Labs/dil/pkg/ledger"
	"github.com/Mindburn-Labs/dil/pkg/store"
)

const (
	LedgerFile   = "ledger.jsonl"
	ManifestFile = "manifest.json"

	// FormatVersion is written into every new manifest. compatibleFormats is
	// the range of manifest versions this build reads.
	FormatVersion     = "1.0.0"
	compatibleFormats = "^1.0"
)

var (
	ErrIncompatible     = errors.New("archive: incompatible bundle format")
	ErrDigestMismatch   = errors.New("archive: ledger digest mismatch")
	ErrManifestMismatch = errors.New("archive: manifest does not match ledger")
)

// Manifest describes one exported bundle.
type Manifest struct {
	FormatVersion string    `json:"format_version"`
	BundleID      string    `json:"bundle_id"`
	RecordCount   int       `json:"record_count"`
	TipHash       *string   `json:"tip_hash"`
	LedgerSHA256  string    `json:"ledger_sha256"`
	ExportedAt    time.Time `json:"exported_at"`
}

// Export writes recs and their manifest to sink. The ledger file is written
// first so a manifest never refers to a missing ledger.
func Export(ctx context.Context, sink Sink, recs []contracts.AuditRecord, now time.Time) (*Manifest, error) {
	var buf bytes.Buffer
	if err := store.WriteJSONL(&buf, recs); err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())

	m := &Manifest{
		FormatVersion: FormatVersion,
		BundleID:      uuid.NewString(),
		RecordCount:   len(recs),
		LedgerSHA256:  hex.EncodeToString(sum[:]),
		ExportedAt:    now.UTC(),
	}
	if n := len(recs); n > 0 {
		tip := recs[n-1].ContentHash
		m.TipHash = &tip
	}

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := sink.Put(ctx, LedgerFile, buf.Bytes()); err != nil {
		return nil, err
	}
	if err := sink.Put(ctx, ManifestFile, manifest); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads a bundle, checking its format version and ledger digest. It does
// not verify the hash chain; see Verify.
func Load(ctx context.Context, src Sink) (*Manifest, []contracts.AuditRecord, error) {
	raw, err := src.Get(ctx, ManifestFile)
	if err != nil {
		return nil, nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := checkFormat(m.FormatVersion); err != nil {
		return nil, nil, err
	}

	data, err := src.Get(ctx, LedgerFile)
	if err != nil {
		return nil, nil, err
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != m.LedgerSHA256 {
		return nil, nil, fmt.Errorf("%w: manifest %s, file %s", ErrDigestMismatch, m.LedgerSHA256, got)
	}

	recs, err := store.ReadJSONL(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode ledger: %w", err)
	}
	return &m, recs, nil
}

// Verify loads a bundle and re-verifies every record against hasher.
func Verify(ctx context.Context, src Sink, hasher crypto.Hasher) (*Manifest, error) {
	m, recs, err := Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if m.RecordCount != len(recs) {
		return m, fmt.Errorf("%w: record_count %d, ledger has %d", ErrManifestMismatch, m.RecordCount, len(recs))
	}
	var tip *string
	if n := len(recs); n > 0 {
		tip = &recs[n-1].ContentHash
	}
	if !sameHash(m.TipHash, tip) {
		return m, fmt.Errorf("%w: tip_hash", ErrManifestMismatch)
	}
	if err := ledger.VerifyRecords(recs, hasher); err != nil {
		return m, err
	}
	return m, nil
}

func checkFormat(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIncompatible, version, err)
	}
	c, err := semver.NewConstraint(compatibleFormats)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatible, v, compatibleFormats)
	}
	return nil
}

func sameHash(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
