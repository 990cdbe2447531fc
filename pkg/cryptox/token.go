package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SecretSize is the byte length of generated signing secrets and keys.
const SecretSize = 32

// RandomBytes reads size bytes from the system CSPRNG.
func RandomBytes(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("random size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}

// GenerateSecret returns size random bytes as base64url without padding,
// suitable for GRADEBOOK_JWT_SECRET or a master key file.
func GenerateSecret(size int) (string, error) {
	buf, err := RandomBytes(size)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
