// Package store implements durable mirrors for the audit ledger: an
// append-only JSONL file and insert-only SQL tables for SQLite and Postgres.
// Every mirror is written synchronously from inside the ledger's critical
// section and is never updated or deleted from.
package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
)

var (
	// ErrSequence is returned when an append does not continue the stored sequence.
	ErrSequence = errors.New("store: out-of-order sequence")
	// ErrConflict is returned when a request_id or sequence is already stored.
	ErrConflict = errors.New("store: record already exists")

	// ErrMirrorBroken is returned once a failed append could not be rolled back.
	ErrMirrorBroken = errors.New("store: mirror unusable after failed rollback")
)

// maxLineBytes bounds a single JSONL record; reasons are short, so 1 MiB is ample.
const maxLineBytes = 1 << 20

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, recs []contracts.AuditRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode %s: %w", r.RequestID, err)
		}
	}
	return nil
}

// ReadJSONL decodes records written by WriteJSONL. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]contracts.AuditRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	recs := make([]contracts.AuditRecord, 0)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var rec contracts.AuditRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}
