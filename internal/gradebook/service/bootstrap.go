package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
	"github.com/aussiebroadwan/gradebook/pkg/cryptox"
)

// BootstrapAdmin describes the first administrator.
type BootstrapAdmin struct {
	Email    string
	Password string // generated and logged once when empty
	Name     string
}

// BootstrapService creates the first admin account at startup so a fresh
// deployment with admin-only registration is usable.
type BootstrapService struct {
	Store  store.Store
	Logger *slog.Logger
}

// IsBootstrapped reports whether any admin account exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	n, err := s.Store.Accounts().CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureAdmin creates the admin described by in unless an admin already
// exists. It reports whether an account was created. An empty email is a
// no-op.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, in BootstrapAdmin) (bool, error) {
	email := NormalizeEmail(in.Email)
	if email == "" {
		return false, nil
	}

	done, err := s.IsBootstrapped(ctx)
	if err != nil {
		return false, fmt.Errorf("check admins: %w", err)
	}
	if done {
		s.Logger.Debug("bootstrap skipped, admin already exists")
		return false, nil
	}

	password := in.Password
	generated := password == ""
	if generated {
		if password, err = cryptox.GeneratePassword(); err != nil {
			return false, fmt.Errorf("generate admin password: %w", err)
		}
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Administrador"
	}

	hash, err := cryptox.HashPasswordContext(ctx, password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	id, err := s.Store.Accounts().Create(ctx, domain.Account{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Name:         name,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return false, fmt.Errorf("bootstrap email %s belongs to a non-admin account", email)
	}
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	if generated {
		s.Logger.Warn("bootstrap admin created with generated password, change it",
			"user_id", id, "email", email, "initial_password", password)
	} else {
		s.Logger.Info("bootstrap admin created", "user_id", id, "email", email)
	}
	return true, nil
}
