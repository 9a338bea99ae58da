package ledger

import (
	"crypto/hmac"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
	"github.com/Mindburn-Labs/dil/pkg/crypto"
)

// VerifyRecords checks, for every record in order, the previous-hash
// linkage, the recomputed content hash and the governance hash. It is a full
// linear scan and returns nil for an empty sequence.
func VerifyRecords(recs []contracts.AuditRecord, hasher crypto.Hasher) error {
	var prev *string
	for i, r := range recs {
		fail := func(reason string) error {
			return &IntegrityError{Index: i, RequestID: r.RequestID, Reason: reason}
		}

		switch {
		case prev == nil && r.PreviousHash != nil:
			return fail("first record must not have a previous_hash")
		case prev != nil && r.PreviousHash == nil:
			return fail("missing previous_hash")
		case prev != nil && *r.PreviousHash != *prev:
			return fail("previous_hash does not match predecessor content_hash")
		}

		fields := r.Fields()
		content, err := hasher.ContentHash(fields)
		if err != nil {
			return fail("content hash not computable: " + err.Error())
		}
		if content != r.ContentHash {
			return fail("content_hash mismatch")
		}
		governance, err := hasher.GovernanceHash(fields)
		if err != nil {
			return fail("governance hash not computable: " + err.Error())
		}
		if !hmac.Equal([]byte(governance), []byte(r.GovernanceHash)) {
			return fail("governance_hash mismatch")
		}

		h := r.ContentHash
		prev = &h
	}
	return nil
}
