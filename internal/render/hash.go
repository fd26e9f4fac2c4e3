package render

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes computes the hex SHA-256 content hash used to stamp and verify
// rendered documents.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
