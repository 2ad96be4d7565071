// Package digest provides the canonical serialization and hashing rules
// shared by every part of the ledger. Any value that gets fingerprinted
// into the chain passes through this package.
package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Size is the length of a hex encoded digest.
const Size = sha256.Size * 2

// ZeroHash represents a digest of all zeros. It is used as the previous
// hash of the genesis block.
var ZeroHash = strings.Repeat("0", Size)

// =============================================================================

// Sum returns the lower-case hex encoded sha256 digest of the data.
func Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// SumString returns the digest of the bytes of the specified string.
func SumString(s string) string {
	return Sum([]byte(s))
}

// Canonical produces the deterministic encoding of a value used as hashing
// input. The value is marshaled to JSON and then normalized through a generic
// decode so object keys are sorted and a struct and a map carrying the same
// fields produce identical bytes. Numbers keep their original text.
func Canonical(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var generic any
	if err := decoder.Decode(&generic); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(generic); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Hash returns the digest of the canonical serialization of the value.
func Hash(value any) (string, error) {
	data, err := Canonical(value)
	if err != nil {
		return "", err
	}

	return Sum(data), nil
}

// IsHex reports whether s looks like a digest produced by this package.
func IsHex(s string) bool {
	if len(s) != Size {
		return false
	}

	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}

	return true
}
