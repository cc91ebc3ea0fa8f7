package license

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

const (
	KeyPrefix = "CSTY"

	// keyAlphabet leaves out 0, O, 1 and I. Its length must divide 256.
	keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	keyGroups   = 3
	keyGroupLen = 4
)

// GenerateKey returns a new key such as CSTY-7KQ2-MZ4D-XH9P.
func GenerateKey() (string, error) {
	return generateKey(rand.Reader)
}

func generateKey(r io.Reader) (string, error) {
	buf := make([]byte, keyGroups*keyGroupLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("generate license key: %w", err)
	}

	var b strings.Builder
	b.WriteString(KeyPrefix)
	for i, v := range buf {
		if i%keyGroupLen == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(keyAlphabet[int(v)%len(keyAlphabet)])
	}
	return b.String(), nil
}

// NormalizeKey trims and upper-cases user input for lookup.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// IsWellFormedKey reports whether key has the prefix and group layout GenerateKey produces.
func IsWellFormedKey(key string) bool {
	parts := strings.Split(key, "-")
	if len(parts) != keyGroups+1 || parts[0] != KeyPrefix {
		return false
	}
	for _, group := range parts[1:] {
		if len(group) != keyGroupLen {
			return false
		}
		for _, c := range group {
			if !strings.ContainsRune(keyAlphabet, c) {
				return false
			}
		}
	}
	return true
}
