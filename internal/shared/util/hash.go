package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashClientKey returns a stable opaque identifier for a client key such as
// an IP address or a chat ID, so raw keys never reach storage.
func HashClientKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
