package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const tokenByteLength = 16 // 128 bits of entropy

// TokenIssuer mints opaque signing tokens. A token is a pure random
// capability; it carries no signer or document information and is only
// meaningful through the database row that references it.
type TokenIssuer struct {
	ttl time.Duration
}

// NewTokenIssuer creates a TokenIssuer with the given validity window
func NewTokenIssuer(ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{ttl: ttl}
}

// Issue returns a fresh token and its expiry timestamp
func (i *TokenIssuer) Issue() (string, time.Time, error) {
	buf := make([]byte, tokenByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate signing token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, time.Now().Add(i.ttl), nil
}

// TTL returns the configured validity window
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}
