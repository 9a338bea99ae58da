// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme)
// serialization for deterministic hashing of audit records.
package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// JCS returns the RFC 8785 canonical JSON representation of v.
//
//  1. Object keys are sorted by their UTF-16 code units (lexicographic for ASCII keys).
//  2. Strings use the minimal RFC 8785 escaping; HTML characters are not escaped.
//  3. Numbers use the ECMAScript shortest round-trip form (5000, 0.85, 1e+21).
//
// Values that JSON cannot represent (NaN, ±Inf, channels) are rejected.
func JCS(v interface{}) ([]byte, error) {
	// Marshal first so struct tags decide the key names.
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jcs: pre-marshal failed: %w", err)
	}

	out, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("jcs: transform failed: %w", err)
	}
	return out, nil
}

// HashBytes computes SHA-256 hash of raw bytes and returns hex string
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
