package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortHash returns the first n hex characters of SHA256(input). n <= 0 or
// beyond the digest length returns the full 64-character digest.
func ShortHash(input string, n int) string {
	h := sha256.Sum256([]byte(input))
	full := hex.EncodeToString(h[:])
	if n <= 0 || n > len(full) {
		return full
	}
	return full[:n]
}
