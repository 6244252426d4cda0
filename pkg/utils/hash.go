package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint hashes the normalized concatenation of its parts. Parts are
// lowercased and whitespace-collapsed so cosmetic differences between
// sources do not produce distinct fingerprints.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(Normalize(p)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Normalize lowercases s and collapses runs of whitespace to single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Truncate returns at most n characters of s without splitting words where
// it can avoid it.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if idx := strings.LastIndex(cut, " "); idx > n/2 {
		cut = cut[:idx]
	}
	return cut
}
