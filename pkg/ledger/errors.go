package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrHashing            = errors.New("ledger: hashing failed")
	ErrStore              = errors.New("ledger: durable store write failed")
	ErrDuplicateRequestID = errors.New("ledger: duplicate request_id")
	ErrIntegrity          = errors.New("ledger: chain integrity violation")
	ErrNotFound           = errors.New("ledger: record not found")
)

// IntegrityError reports the first record at which verification failed.
// Every record from Index onwards is untrusted.
type IntegrityError struct {
	Index     int
	RequestID string
	Reason    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("chain integrity violation at record %d (%s): %s", e.Index, e.RequestID, e.Reason)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}
