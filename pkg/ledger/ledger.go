// Package ledger implements the append-only, hash-chained audit ledger.
//
// Each record carries the content hash of its predecessor in previous_hash;
// the first record has none. Appends are serialized by a single mutex so the
// read of the tip hash and the commit of the new record are atomic. Reads
// take the shared lock and return deep copies. Committed records are never
// modified, so Verify, Inspect and Snapshot capture the record slice under
// the lock and replay the chain after releasing it; a long replay does not
// block appends.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
	"github.com/Mindburn-Labs/dil/pkg/crypto"
)

// Mirror durably records committed entries. Append is called inside the
// ledger's critical section and must return only once the record is durable.
type Mirror interface {
	Append(ctx context.Context, seq uint64, rec contracts.AuditRecord) error
	List(ctx context.Context) ([]contracts.AuditRecord, error)
}

// Store is the in-memory ledger. The zero value is not usable; use New or Open.
type Store struct {
	mu      sync.RWMutex
	hasher  crypto.Hasher
	mirror  Mirror
	records []contracts.AuditRecord
	byID    map[string]int
	tip     string
}

// New creates an empty ledger. mirror may be nil.
func New(hasher crypto.Hasher, mirror Mirror) *Store {
	return &Store{
		hasher:  hasher,
		mirror:  mirror,
		records: make([]contracts.AuditRecord, 0),
		byID:    make(map[string]int),
	}
}

// Open restores a ledger from mirror. It refuses to start from a mirror
// whose chain does not verify.
func Open(ctx context.Context, hasher crypto.Hasher, mirror Mirror) (*Store, error) {
	s := New(hasher, mirror)
	if mirror == nil {
		return s, nil
	}

	recs, err := mirror.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list mirror: %w", ErrStore, err)
	}
	if err := VerifyRecords(recs, hasher); err != nil {
		return nil, err
	}

	for i, r := range recs {
		if _, dup := s.byID[r.RequestID]; dup {
			return nil, &IntegrityError{Index: i, RequestID: r.RequestID, Reason: "duplicate request_id"}
		}
		s.byID[r.RequestID] = i
		s.records = append(s.records, r.Clone())
		s.tip = r.ContentHash
	}
	return s, nil
}

// Append links, hashes, mirrors and commits a new record, returning it with
// the post-append chain depth. It is all-or-nothing: on error the ledger and
// its tip hash are unchanged. Cancellation of ctx does not interrupt a write
// that has already started.
func (s *Store) Append(ctx context.Context, f contracts.RecordFields) (contracts.AuditRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byID[f.RequestID]; dup {
		return contracts.AuditRecord{}, 0, fmt.Errorf("%w: %s", ErrDuplicateRequestID, f.RequestID)
	}

	content, err := s.hasher.ContentHash(f)
	if err != nil {
		return contracts.AuditRecord{}, 0, fmt.Errorf("%w: %w", ErrHashing, err)
	}
	governance, err := s.hasher.GovernanceHash(f)
	if err != nil {
		return contracts.AuditRecord{}, 0, fmt.Errorf("%w: %w", ErrHashing, err)
	}

	rec := contracts.AuditRecord{
		RequestID:      f.RequestID,
		UserID:         f.UserID,
		Amount:         f.Amount,
		AIRiskScore:    f.AIRiskScore,
		Decision:       f.Decision,
		Reason:         f.Reason,
		Timestamp:      f.Timestamp,
		ContentHash:    content,
		GovernanceHash: governance,
	}
	if s.tip != "" {
		prev := s.tip
		rec.PreviousHash = &prev
	}

	seq := uint64(len(s.records)) + 1
	if s.mirror != nil {
		if err := s.mirror.Append(context.WithoutCancel(ctx), seq, rec); err != nil {
			return contracts.AuditRecord{}, 0, fmt.Errorf("%w: %w", ErrStore, err)
		}
	}

	s.records = append(s.records, rec)
	s.byID[rec.RequestID] = len(s.records) - 1
	s.tip = content

	return rec.Clone(), len(s.records), nil
}

// Records returns a copy of every record in insertion order.
func (s *Store) Records() []contracts.AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.records)
}

// Get looks a record up by request id.
func (s *Store) Get(requestID string) (contracts.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[requestID]
	if !ok {
		return contracts.AuditRecord{}, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}
	return s.records[i].Clone(), nil
}

// Size returns the number of committed records.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// TipHash returns the content hash of the last record, or nil when empty.
func (s *Store) TipHash() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tip == "" {
		return nil
	}
	tip := s.tip
	return &tip
}

// view returns the committed records and tip hash as of one read lock.
// The slice is capped so later appends never show through it.
func (s *Store) view() ([]contracts.AuditRecord, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.records)
	return s.records[:n:n], s.tip
}

// Verify scans the whole chain and returns the first *IntegrityError.
func (s *Store) Verify() error {
	recs, _ := s.view()
	return VerifyRecords(recs, s.hasher)
}

// VerifyIntegrity is the boolean form of Verify.
func (s *Store) VerifyIntegrity() bool {
	return s.Verify() == nil
}

// Inspect returns the size and the verification result of the same state.
func (s *Store) Inspect() (int, error) {
	recs, _ := s.view()
	return len(recs), VerifyRecords(recs, s.hasher)
}

// Snapshot is a consistent view of the ledger as of one read lock.
type Snapshot struct {
	Records   []contracts.AuditRecord
	Total     int
	TipHash   *string
	Integrity error
}

// Snapshot returns the last limit records (all when limit <= 0) together
// with the total count, tip hash and verification result of the same state.
func (s *Store) Snapshot(limit int) Snapshot {
	recs, tip := s.view()

	snap := Snapshot{
		Records:   cloneAll(tail(recs, limit)),
		Total:     len(recs),
		Integrity: VerifyRecords(recs, s.hasher),
	}
	if tip != "" {
		snap.TipHash = &tip
	}
	return snap
}

func tail(recs []contracts.AuditRecord, n int) []contracts.AuditRecord {
	if n <= 0 || n >= len(recs) {
		return recs
	}
	return recs[len(recs)-n:]
}

func cloneAll(recs []contracts.AuditRecord) []contracts.AuditRecord {
	out := make([]contracts.AuditRecord, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}
