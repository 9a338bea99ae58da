// Package crypto computes the two integrity digests carried by every audit
// record: a SHA-256 content hash and an HMAC-SHA256 governance hash, both over
// the RFC 8785 canonical form of the record's decision fields.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/dil/pkg/canonicalize"
	"github.com/Mindburn-Labs/dil/pkg/contracts"
)

// ErrEmptySecret is returned when a hasher is built without a governance secret.
var ErrEmptySecret = errors.New("governance secret must not be empty")

// Hasher is the hashing contract the ledger depends on.
type Hasher interface {
	ContentHash(f contracts.RecordFields) (string, error)
	GovernanceHash(f contracts.RecordFields) (string, error)
}

// RecordHasher is stateless apart from its injected secret and safe for
// concurrent use.
type RecordHasher struct {
	secret []byte
}

// NewRecordHasher copies secret; callers may zero their slice afterwards.
func NewRecordHasher(secret []byte) (*RecordHasher, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &RecordHasher{secret: key}, nil
}

// Canonical returns the exact bytes both digests are computed over.
func Canonical(f contracts.RecordFields) ([]byte, error) {
	b, err := canonicalize.JCS(f)
	if err != nil {
		return nil, fmt.Errorf("canonicalize record %q: %w", f.RequestID, err)
	}
	return b, nil
}

// ContentHash returns the lowercase hex SHA-256 of the canonical fields.
func (h *RecordHasher) ContentHash(f contracts.RecordFields) (string, error) {
	b, err := Canonical(f)
	if err != nil {
		return "", err
	}
	return canonicalize.HashBytes(b), nil
}

// GovernanceHash returns the lowercase hex HMAC-SHA256 of the canonical
// fields keyed by the governance secret.
func (h *RecordHasher) GovernanceHash(f contracts.RecordFields) (string, error) {
	b, err := Canonical(f)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(b)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
