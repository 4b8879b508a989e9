// Package checksum fingerprints file contents so the watcher can tell a real
// external edit from a write-back of what the host itself last saved.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether data hashes to sum. An empty sum never matches.
func Matches(sum string, data []byte) bool {
	return sum != "" && Sum(data) == sum
}
