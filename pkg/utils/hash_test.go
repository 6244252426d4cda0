package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("tmpl-1", "0", "full")
	b := Fingerprint("tmpl-1", "0", "full")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, Fingerprint("tmpl-1", "1", "full"))
	assert.NotEqual(t, a, Fingerprint("tmpl-1", "0", "reduced"))
	assert.NotEqual(t, a, Fingerprint("tmpl-2", "0", "full"))
}

func TestFingerprint_NormalizesInput(t *testing.T) {
	assert.Equal(t, Fingerprint("Hello  World"), Fingerprint("hello world"))
	assert.Equal(t, Fingerprint("a\tb\nc"), Fingerprint("A B C"))
}

func TestFingerprint_PartBoundaries(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide.
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello world"},
		{"  leading and   trailing  ", "leading and trailing"},
		{"Tabs\tand\nnewlines", "tabs and newlines"},
		{"", ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, Normalize(tc.input))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	long := "this is a longer sentence that needs truncation"
	cut := Truncate(long, 20)
	assert.LessOrEqual(t, len(cut), 20)
	assert.False(t, cut[len(cut)-1] == ' ')
}
