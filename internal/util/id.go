// Package util holds small helpers with no better home.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random 128-bit identifier in hex. A non-empty prefix is
// joined with an underscore so ids read by kind: per_..., ishr_..., tsk_...
func NewID(prefix string) string {
	raw := make([]byte, 16)
	_, _ = rand.Read(raw)
	id := hex.EncodeToString(raw)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
