// Package securetoken generates the opaque credentials handed to clients
// (refresh tokens, session tokens, authorization codes) and the hashes stored in their place.
package securetoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// DefaultLength is 32 bytes = 256 bits of entropy.
const DefaultLength = 32

// Generate returns nBytes of crypto/rand output encoded as unpadded base64url.
func Generate(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = DefaultLength
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash returns the hex SHA-256 of s. Only this value is ever persisted for refresh tokens.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
