package domain

import "time"

// Account is a user of the gradebook.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string // argon2id PHC, or a legacy salt$digest record
	Role         Role
	Name         string
	MFASecret    []byte     // sealed TOTP secret, nil when never enrolled
	MFAEnabledAt *time.Time // nil while MFA is off
	CreatedAt    time.Time
}

// MFAEnabled reports whether logins require a TOTP code.
func (a Account) MFAEnabled() bool {
	return a.MFAEnabledAt != nil
}
