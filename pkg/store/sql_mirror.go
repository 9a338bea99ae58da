package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
)

// SQLMirror stores records in an insert-only SQLite table. It works with any
// database/sql driver that accepts ? placeholders; the binary uses
// modernc.org/sqlite.
type SQLMirror struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	seq INTEGER PRIMARY KEY,
	request_id TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	amount REAL NOT NULL,
	ai_risk_score REAL NOT NULL,
	decision TEXT NOT NULL,
	reason TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	previous_hash TEXT,
	governance_hash TEXT NOT NULL
);
CREATE TRIGGER IF NOT EXISTS audit_records_no_update BEFORE UPDATE ON audit_records
BEGIN SELECT RAISE(ABORT, 'audit_records is append-only'); END;
CREATE TRIGGER IF NOT EXISTS audit_records_no_delete BEFORE DELETE ON audit_records
BEGIN SELECT RAISE(ABORT, 'audit_records is append-only'); END;
`

const selectRecords = `SELECT request_id, user_id, amount, ai_risk_score, decision, reason, timestamp, content_hash, previous_hash, governance_hash
FROM audit_records ORDER BY seq ASC`

// NewSQLMirror wraps db. Call Init before first use.
func NewSQLMirror(db *sql.DB) *SQLMirror {
	return &SQLMirror{db: db}
}

// Init creates the table and its append-only triggers.
func (m *SQLMirror) Init(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, sqliteSchema)
	return err
}

func (m *SQLMirror) Append(ctx context.Context, seq uint64, rec contracts.AuditRecord) error {
	query := `
		INSERT INTO audit_records (seq, request_id, user_id, amount, ai_risk_score, decision, reason, timestamp, content_hash, previous_hash, governance_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := m.db.ExecContext(ctx, query, insertArgs(seq, rec)...)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s: %w", ErrConflict, rec.RequestID, err)
	}
	return err
}

func (m *SQLMirror) List(ctx context.Context) ([]contracts.AuditRecord, error) {
	return queryRecords(ctx, m.db, selectRecords)
}

func insertArgs(seq uint64, rec contracts.AuditRecord) []any {
	var prev sql.NullString
	if rec.PreviousHash != nil {
		prev = sql.NullString{String: *rec.PreviousHash, Valid: true}
	}
	return []any{
		int64(seq), rec.RequestID, rec.UserID, rec.Amount, rec.AIRiskScore,
		rec.Decision, rec.Reason, rec.Timestamp, rec.ContentHash, prev, rec.GovernanceHash,
	}
}

func queryRecords(ctx context.Context, db *sql.DB, query string) ([]contracts.AuditRecord, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]contracts.AuditRecord, 0)
	for rows.Next() {
		var rec contracts.AuditRecord
		var prev sql.NullString
		if err := rows.Scan(&rec.RequestID, &rec.UserID, &rec.Amount, &rec.AIRiskScore,
			&rec.Decision, &rec.Reason, &rec.Timestamp, &rec.ContentHash, &prev, &rec.GovernanceHash); err != nil {
			return nil, err
		}
		if prev.Valid {
			p := prev.String
			rec.PreviousHash = &p
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
