// Package cryptoutil holds key handling and stream encryption for the
// object-store mirror.
package cryptoutil

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// KeySize is the required key length in bytes.
const KeySize = 32

// ParseKey decodes a 256-bit key given as base64 or hex.
func ParseKey(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == KeySize {
		return b, nil
	}
	if b, err := hex.DecodeString(s); err == nil && len(b) == KeySize {
		return b, nil
	}
	return nil, fmt.Errorf("encryption key must be %d bytes, base64 or hex encoded", KeySize)
}
