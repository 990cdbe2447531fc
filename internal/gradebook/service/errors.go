package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	ErrMFARequired        = fmt.Errorf("%w: mfa code required", domain.ErrUnauthenticated)
	ErrInvalidOTP         = fmt.Errorf("%w: invalid one-time code", domain.ErrUnauthenticated)

	ErrEmailTaken        = fmt.Errorf("%w: email already registered", domain.ErrConflict)
	ErrMFAAlreadyEnabled = fmt.Errorf("%w: mfa already enabled", domain.ErrConflict)

	ErrInvalidTOTPCode = domain.NewValidationError("code", "invalid TOTP code")
	ErrMFANotEnrolled  = domain.NewValidationError("code", "call setup first")
	ErrMFANotEnabled   = domain.NewValidationError("code", "mfa not enabled")
	ErrSelfDelete      = domain.NewValidationError("id", "cannot delete your own account")

	ErrAdminOnly = fmt.Errorf("%w: registration requires an admin", domain.ErrForbidden)
)

// fromStore translates store errors into the domain taxonomy. Anything
// unexpected becomes a dependency failure.
func fromStore(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	case errors.Is(err, store.ErrAlreadyExists):
		return fmt.Errorf("%w: %s", domain.ErrConflict, what)
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrDependency):
		return err
	default:
		return fmt.Errorf("%w: %s: %w", domain.ErrDependency, what, err)
	}
}
