package cryptox

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

var (
	hashSlotsMu sync.RWMutex
	hashSlots   = semaphore.NewWeighted(int64(runtime.NumCPU()))
)

// SetHashConcurrency bounds how many Argon2id evaluations may run at once
// through the Context variants. Each evaluation holds roughly 19 MiB.
func SetHashConcurrency(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	hashSlotsMu.Lock()
	hashSlots = semaphore.NewWeighted(int64(n))
	hashSlotsMu.Unlock()
}

func acquireHashSlot(ctx context.Context) (func(), error) {
	hashSlotsMu.RLock()
	sem := hashSlots
	hashSlotsMu.RUnlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("cryptox: waiting for hash slot: %w", err)
	}
	return func() { sem.Release(1) }, nil
}

// HashPassword generates a PHC-format Argon2id hash string including salt and parameters.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		iterations,
		memory,
		parallelism,
		keyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// HashPasswordContext is HashPassword gated by the hash concurrency limit.
func HashPasswordContext(ctx context.Context, password string) (string, error) {
	release, err := acquireHashSlot(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return HashPassword(password)
}

// VerifyPassword reports whether password matches the stored credential record.
// Both Argon2id PHC records and legacy "hexsalt$hexsha256" records are accepted.
// Any malformed record yields false.
func VerifyPassword(password, record string) bool {
	if strings.HasPrefix(record, "$argon2id$") {
		return verifyArgon2id(password, record)
	}
	return verifyLegacy(password, record)
}

// VerifyPasswordContext is VerifyPassword gated by the hash concurrency limit.
// The error is only non-nil when ctx ends while waiting for a slot.
func VerifyPasswordContext(ctx context.Context, password, record string) (bool, error) {
	release, err := acquireHashSlot(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	return VerifyPassword(password, record), nil
}

// NeedsRehash reports whether record should be replaced by a fresh
// HashPassword result: legacy records and Argon2id records hashed with
// parameters other than the current ones.
func NeedsRehash(record string) bool {
	p, ok := parseArgon2id(record)
	if !ok {
		return true
	}
	return p.memory != memory || p.iterations != iterations || p.parallelism != parallelism
}

type argon2Record struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// parseArgon2id parses $argon2id$v=19$m=X,t=Y,p=Z$salt$hash.
func parseArgon2id(record string) (argon2Record, bool) {
	var r argon2Record

	parts := strings.Split(record, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != "v=19" {
		return r, false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &r.memory, &r.iterations, &r.parallelism); err != nil {
		return r, false
	}
	if r.memory == 0 || r.iterations == 0 || r.parallelism == 0 {
		return r, false
	}

	var err error
	if r.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(r.salt) == 0 {
		return r, false
	}
	if r.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(r.hash) == 0 {
		return r, false
	}
	return r, true
}

func verifyArgon2id(password, record string) bool {
	r, ok := parseArgon2id(record)
	if !ok {
		return false
	}

	computed := argon2.IDKey(
		[]byte(password+GetPepper()),
		r.salt,
		r.iterations,
		r.memory,
		r.parallelism,
		uint32(len(r.hash)), // #nosec G115 - bounded by the decoded record
	)
	return subtle.ConstantTimeCompare(computed, r.hash) == 1
}

// verifyLegacy checks records written by the previous SHA-256 scheme:
// hex(sha256(password || salt)) stored as "salt$digest". The pepper is not
// part of these records.
func verifyLegacy(password, record string) bool {
	salt, digest, ok := strings.Cut(record, "$")
	if !ok || salt == "" || digest == "" || strings.Contains(digest, "$") {
		return false
	}

	want, err := hex.DecodeString(digest)
	if err != nil || len(want) != sha256.Size {
		return false
	}

	got := sha256.Sum256([]byte(password + salt))
	return subtle.ConstantTimeCompare(got[:], want) == 1
}

// GeneratePassword returns a random 16 character alphanumeric password.
func GeneratePassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 16
	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random password: %w", err)
		}
		password[i] = charset[n.Int64()]
	}
	return string(password), nil
}
