package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
)

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// PostgresMirror stores records in an insert-only Postgres table.
type PostgresMirror struct {
	db *sql.DB
}

func NewPostgresMirror(db *sql.DB) *PostgresMirror {
	return &PostgresMirror{db: db}
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	seq BIGINT PRIMARY KEY,
	request_id TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	ai_risk_score DOUBLE PRECISION NOT NULL,
	decision TEXT NOT NULL,
	reason TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	previous_hash TEXT,
	governance_hash TEXT NOT NULL
);

CREATE OR REPLACE RULE audit_records_no_update AS ON UPDATE TO audit_records DO INSTEAD NOTHING;
CREATE OR REPLACE RULE audit_records_no_delete AS ON DELETE TO audit_records DO INSTEAD NOTHING;
`

func (m *PostgresMirror) Init(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, pgSchema)
	return err
}

func (m *PostgresMirror) Append(ctx context.Context, seq uint64, rec contracts.AuditRecord) error {
	query := `
		INSERT INTO audit_records (seq, request_id, user_id, amount, ai_risk_score, decision, reason, timestamp, content_hash, previous_hash, governance_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := m.db.ExecContext(ctx, query, insertArgs(seq, rec)...)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%w: %s: %w", ErrConflict, rec.RequestID, err)
	}
	return err
}

func (m *PostgresMirror) List(ctx context.Context) ([]contracts.AuditRecord, error) {
	return queryRecords(ctx, m.db, selectRecords)
}
