package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// TokenLength is the entropy of opaque workflow and session tokens (256 bits).
const TokenLength = 32

// GenerateToken returns a URL-safe random token. The raw value is only ever
// delivered out-of-band (mail link or cookie); storage sees HashToken of it.
func GenerateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// HashToken computes the deterministic one-way digest used for storing and
// looking up opaque tokens, so a database read never exposes a redeemable
// secret.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
