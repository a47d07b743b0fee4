package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const opaqueTokenBytes = 32

// GenerateOpaqueToken returns a random hex token and the SHA-256 hex digest
// that should be stored in its place.
func GenerateOpaqueToken() (plain, hash string, err error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	plain = hex.EncodeToString(b)
	return plain, HashToken(plain), nil
}

// HashToken returns the SHA-256 hex digest of a token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
