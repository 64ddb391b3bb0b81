package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns prefix followed by size random bytes in hex. The result only
// uses letters, digits and '_'.
func NewID(prefix string, size int) string {
	if size <= 0 {
		size = 8
	}
	raw := make([]byte, size)
	_, _ = rand.Read(raw)
	if prefix == "" {
		return hex.EncodeToString(raw)
	}
	return prefix + "_" + hex.EncodeToString(raw)
}
