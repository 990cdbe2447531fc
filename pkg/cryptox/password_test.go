package cryptox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox-test")
	if err != nil {
		panic(err)
	}
	SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func legacyRecord(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return salt + "$" + hex.EncodeToString(sum[:])
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "contraseña🔒"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 6)
			require.Equal(t, "m=19456,t=2,p=1", parts[3])
			require.NotEmpty(t, parts[4])
			require.NotEmpty(t, parts[5])

			require.True(t, VerifyPassword(tt.password, hash))
			require.False(t, NeedsRehash(hash))
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	hash1, err := HashPassword("secret")
	require.NoError(t, err)
	hash2, err := HashPassword("secret")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2)
	require.True(t, VerifyPassword("secret", hash1))
	require.True(t, VerifyPassword("secret", hash2))
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	require.False(t, VerifyPassword("Secret", hash))
	require.False(t, VerifyPassword("", hash))
	require.False(t, VerifyPassword("secret ", hash))
}

func TestVerifyPassword_Legacy(t *testing.T) {
	rec := legacyRecord("secret", "0123456789abcdef0123456789abcdef")

	require.True(t, VerifyPassword("secret", rec))
	require.False(t, VerifyPassword("other", rec))
	require.True(t, NeedsRehash(rec))
}

func TestVerifyPassword_Malformed(t *testing.T) {
	valid, err := HashPassword("secret")
	require.NoError(t, err)
	good := legacyRecord("secret", "abcd")

	tests := []struct {
		name   string
		record string
	}{
		{"empty", ""},
		{"no delimiter", "abcdef"},
		{"extra delimiter", "abcd$" + strings.SplitN(good, "$", 2)[1] + "$ff"},
		{"empty salt", "$" + strings.SplitN(good, "$", 2)[1]},
		{"empty digest", "abcd$"},
		{"non-hex digest", "abcd$zzzz"},
		{"short digest", "abcd$abcd"},
		{"wrong algorithm", strings.Replace(valid, "argon2id", "argon2i", 1)},
		{"wrong version", strings.Replace(valid, "v=19", "v=16", 1)},
		{"bad params", strings.Replace(valid, "m=19456,t=2,p=1", "m=x,t=2,p=1", 1)},
		{"zero params", strings.Replace(valid, "m=19456,t=2,p=1", "m=0,t=0,p=0", 1)},
		{"truncated", valid[:len(valid)-20] + "$"},
		{"bad salt encoding", "$argon2id$v=19$m=19456,t=2,p=1$!!!$AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.False(t, VerifyPassword("secret", tt.record))
		})
	}
}

func TestPasswordContext_Cancelled(t *testing.T) {
	SetHashConcurrency(1)
	t.Cleanup(func() { SetHashConcurrency(0) })

	release, err := acquireHashSlot(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = HashPasswordContext(ctx, "secret")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	ok, err := VerifyPasswordContext(ctx, "secret", "x$y")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, ok)
}

func TestPasswordContext_RoundTrip(t *testing.T) {
	ctx := context.Background()

	hash, err := HashPasswordContext(ctx, "secret")
	require.NoError(t, err)

	ok, err := VerifyPasswordContext(ctx, "secret", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGeneratePassword(t *testing.T) {
	p1, err := GeneratePassword()
	require.NoError(t, err)
	p2, err := GeneratePassword()
	require.NoError(t, err)

	require.Len(t, p1, 16)
	require.NotEqual(t, p1, p2)
}
