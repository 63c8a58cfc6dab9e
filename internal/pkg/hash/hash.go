// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256String computes the SHA256 hash of a string.
func SHA256String(s string) string {
	return SHA256([]byte(s))
}

// SHA256Short returns the first n characters of a SHA256 hash.
func SHA256Short(data []byte, n int) string {
	h := SHA256(data)
	if n > len(h) {
		return h
	}
	return h[:n]
}

// DocumentID generates a deterministic document ID from its source and text.
// Used when a corpus record arrives without an identifier of its own.
func DocumentID(source, text string) string {
	data := []byte(source + "\x00" + strings.TrimSpace(text))
	return SHA256Short(data, 16)
}

// Seed derives a 64-bit RNG seed from a label, so independent streams
// (one per ensemble bag, say) can be split from a single configured seed.
func Seed(base uint64, label string) uint64 {
	h := sha256.Sum256([]byte(label))
	return base ^ binary.LittleEndian.Uint64(h[:8])
}
