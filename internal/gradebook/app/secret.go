package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aussiebroadwan/gradebook/pkg/cryptox"
	"github.com/aussiebroadwan/gradebook/pkg/jwtx"
)

// LoadJWTSecret returns the HS256 signing secret.
//
// Sources, in order:
//   - GRADEBOOK_JWT_SECRET_FILE: file contents with surrounding whitespace
//     trimmed, for mounted secrets.
//   - GRADEBOOK_JWT_SECRET: the literal value.
//   - Outside prod, 32 random bytes. Every token becomes invalid when the
//     process restarts.
func LoadJWTSecret(cfg Config, logger *slog.Logger) ([]byte, error) {
	var secret []byte

	switch {
	case cfg.JWTSecretFile != "":
		data, err := os.ReadFile(cfg.JWTSecretFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read JWT secret file: %w", err)
		}
		secret = []byte(strings.TrimSpace(string(data)))
		logger.Info("JWT secret loaded from file", "path", cfg.JWTSecretFile)

	case cfg.JWTSecret != "":
		secret = []byte(cfg.JWTSecret)

	case cfg.IsProd():
		return nil, fmt.Errorf("a JWT secret is required in %s", cfg.Env)

	default:
		var err error
		if secret, err = cryptox.RandomBytes(jwtx.MinSecretLength); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral JWT secret: %w", err)
		}
		logger.Warn("using an ephemeral JWT secret, tokens will not survive a restart")
	}

	if len(secret) < jwtx.MinSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d bytes, got %d", jwtx.MinSecretLength, len(secret))
	}
	return secret, nil
}
