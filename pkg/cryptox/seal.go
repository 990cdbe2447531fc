package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// MasterKeyEnv is consulted when no master key file is configured.
const MasterKeyEnv = "GRADEBOOK_MASTER_KEY"

var (
	masterKeyMu   sync.Mutex
	masterKey     []byte
	masterKeyPath string
)

// SetMasterKeyPath configures the file the sealing key is derived from and
// discards any key already derived.
func SetMasterKeyPath(path string) {
	masterKeyMu.Lock()
	defer masterKeyMu.Unlock()
	masterKeyPath = path
	masterKey = nil
}

// getMasterKey derives a 32-byte AES-256 key from, in order, the configured
// file, the GRADEBOOK_MASTER_KEY env var, or random bytes that live only as
// long as the process.
func getMasterKey() ([]byte, error) {
	masterKeyMu.Lock()
	defer masterKeyMu.Unlock()

	if masterKey != nil {
		return masterKey, nil
	}

	var material []byte
	switch {
	case masterKeyPath != "":
		data, err := os.ReadFile(masterKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		material = data
	case os.Getenv(MasterKeyEnv) != "":
		material = []byte(os.Getenv(MasterKeyEnv))
	default:
		var err error
		if material, err = RandomBytes(SecretSize); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral master key: %w", err)
		}
	}

	sum := sha256.Sum256(material)
	masterKey = sum[:]
	return masterKey, nil
}

func masterAEAD() (cipher.AEAD, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-256-GCM under the master key.
// Output layout: [12-byte nonce][ciphertext][16-byte tag].
func Seal(plaintext []byte) ([]byte, error) {
	gcm, err := masterAEAD()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(sealed []byte) ([]byte, error) {
	gcm, err := masterAEAD()
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}
