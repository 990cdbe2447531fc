package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
	"github.com/aussiebroadwan/gradebook/pkg/cryptox"
	"github.com/aussiebroadwan/gradebook/pkg/jwtx"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"
)

// RegistrationMode controls who may create accounts.
type RegistrationMode string

const (
	// RegistrationOpen lets anyone register with any role.
	RegistrationOpen RegistrationMode = "open"
	// RegistrationAdmin requires an authenticated admin.
	RegistrationAdmin RegistrationMode = "admin"
)

// ParseRegistrationMode validates a configured mode.
func ParseRegistrationMode(s string) (RegistrationMode, error) {
	switch m := RegistrationMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RegistrationOpen, RegistrationAdmin:
		return m, nil
	default:
		return "", fmt.Errorf("unknown registration mode %q", s)
	}
}

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 100
	maxEmailLength    = 254
)

// Session is an issued token and the account it was issued for.
type Session struct {
	Account   domain.Account
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
}

// LoginInput carries the login form.
type LoginInput struct {
	Email    string
	Password string
	OTP      string
	IP       string
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Email    string
	Password string
	Role     string
	Name     string
	IP       string
}

// AuthService handles credentials and session tokens.
type AuthService struct {
	Store    store.Store
	Codec    *jwtx.Codec
	Denylist jwtx.Denylist
	Audit    Auditor
	MFA      *MFAService
	TTL      time.Duration
	Mode     RegistrationMode

	dummyOnce sync.Once
	dummyHash string
}

func (s *AuthService) ttl() time.Duration {
	if s.TTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.TTL
}

func (s *AuthService) auditor() Auditor {
	if s.Audit == nil {
		return NopAuditor{}
	}
	return s.Audit
}

func (s *AuthService) denylist() jwtx.Denylist {
	if s.Denylist == nil {
		return jwtx.NopDenylist{}
	}
	return s.Denylist
}

// NormalizeEmail trims and lowercases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks credentials (and a TOTP code when MFA is on) and issues a
// session token. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials after the same amount of hashing work.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	log := slogx.FromContext(ctx)

	email := NormalizeEmail(in.Email)
	f := domain.Fields{}
	if email == "" {
		f.Add("email", "required")
	}
	if in.Password == "" {
		f.Add("password", "required")
	}
	if err := f.Err(); err != nil {
		return Session{}, err
	}

	acc, err := s.Store.Accounts().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.burnVerify(ctx, in.Password)
		log.Info("login failed", "reason", "unknown email")
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fromStore(err, "account")
	}

	ok, err := cryptox.VerifyPasswordContext(ctx, in.Password, acc.PasswordHash)
	if err != nil {
		return Session{}, fmt.Errorf("%w: verify password: %w", domain.ErrDependency, err)
	}
	if !ok {
		log.Info("login failed", "reason", "wrong password", "user_id", acc.ID)
		return Session{}, ErrInvalidCredentials
	}

	if acc.MFAEnabled() {
		if strings.TrimSpace(in.OTP) == "" {
			return Session{}, ErrMFARequired
		}
		if s.MFA == nil || !s.MFA.Validate(ctx, acc, in.OTP) {
			log.Info("login failed", "reason", "bad otp", "user_id", acc.ID)
			return Session{}, ErrInvalidOTP
		}
	}

	if cryptox.NeedsRehash(acc.PasswordHash) {
		s.rehash(ctx, acc.ID, in.Password)
	}

	sess, err := s.issue(acc)
	if err != nil {
		return Session{}, err
	}

	s.auditor().Record(ctx, acc.ID, ActionLogin, in.IP)
	log.Info("login succeeded", "user_id", acc.ID, "role", acc.Role)
	return sess, nil
}

// burnVerify spends the same hashing effort as a real verify.
func (s *AuthService) burnVerify(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		h, err := cryptox.HashPassword("gradebook-dummy-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_, _ = cryptox.VerifyPasswordContext(ctx, password, s.dummyHash)
	}
}

// rehash upgrades a legacy or outdated record. Failure leaves the old
// record in place.
func (s *AuthService) rehash(ctx context.Context, accountID int64, password string) {
	log := slogx.FromContext(ctx)

	h, err := cryptox.HashPasswordContext(ctx, password)
	if err != nil {
		log.Warn("password rehash failed", "user_id", accountID, "error", err)
		return
	}
	if err := s.Store.Accounts().UpdatePasswordHash(ctx, accountID, h); err != nil {
		log.Warn("password rehash not stored", "user_id", accountID, "error", err)
		return
	}
	log.Info("password record upgraded", "user_id", accountID)
}

func (s *AuthService) issue(acc domain.Account) (Session, error) {
	ttl := s.ttl()
	claims := jwtx.NewSessionClaims(acc.Email, string(acc.Role), acc.ID, acc.Name)

	token, err := s.Codec.Issue(claims, ttl)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	return Session{
		Account:   acc,
		Token:     token,
		ExpiresAt: s.Codec.Now().Add(ttl),
		TTL:       ttl,
	}, nil
}

// Register creates an account, plus its student record for the estudiante
// role, in one transaction. actor is nil for anonymous callers.
func (s *AuthService) Register(ctx context.Context, actor *domain.Principal, in RegisterInput) (domain.Account, error) {
	if s.Mode == RegistrationAdmin {
		if actor == nil {
			return domain.Account{}, fmt.Errorf("%w: registration requires an admin", domain.ErrUnauthenticated)
		}
		if !actor.HasRole(domain.RoleAdmin) {
			return domain.Account{}, ErrAdminOnly
		}
	}

	acc, err := validateRegistration(in)
	if err != nil {
		return domain.Account{}, err
	}

	acc.PasswordHash, err = cryptox.HashPasswordContext(ctx, in.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}
	acc.CreatedAt = s.Codec.Now()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		id, err := tx.Accounts().Create(ctx, acc)
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrEmailTaken
		}
		if err != nil {
			return err
		}
		acc.ID = id

		if acc.Role != domain.RoleStudent {
			return nil
		}
		_, err = tx.Students().Create(ctx, domain.Student{
			AccountID: id,
			Code:      domain.StudentCode(id),
			Name:      acc.Name,
		})
		return err
	})
	if err != nil {
		return domain.Account{}, fromStore(err, "account")
	}

	actorID := acc.ID
	if actor != nil {
		actorID = actor.UserID
	}
	s.auditor().Record(ctx, actorID, ActionRegister, in.IP)
	slogx.FromContext(ctx).Info("account registered", "user_id", acc.ID, "role", acc.Role)

	acc.PasswordHash = ""
	return acc, nil
}

func validateRegistration(in RegisterInput) (domain.Account, error) {
	f := domain.Fields{}

	email := NormalizeEmail(in.Email)
	switch {
	case email == "":
		f.Add("email", "required")
	case len(email) > maxEmailLength:
		f.Add("email", "too long")
	default:
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			f.Add("email", "invalid email address")
		}
	}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		f.Add("nombre", "required")
	case len(name) > maxNameLength:
		f.Add("nombre", "too long (max 100)")
	}

	switch {
	case in.Password == "":
		f.Add("password", "required")
	case len(in.Password) < minPasswordLength:
		f.Add("password", "too short (min 8)")
	case len(in.Password) > maxPasswordLength:
		f.Add("password", "too long (max 128)")
	}

	role, err := domain.ParseRole(strings.TrimSpace(in.Role))
	if err != nil {
		f.Add("rol", "must be one of admin, profesor, estudiante")
	}

	if err := f.Err(); err != nil {
		return domain.Account{}, err
	}
	return domain.Account{Email: email, Role: role, Name: name}, nil
}

// Refresh issues a new token for the principal's account and revokes the
// presented one. Role and name are re-read so changes take effect.
func (s *AuthService) Refresh(ctx context.Context, p domain.Principal) (Session, error) {
	acc, err := s.Store.Accounts().GetByID(ctx, p.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthenticated)
	}
	if err != nil {
		return Session{}, fromStore(err, "account")
	}

	sess, err := s.issue(acc)
	if err != nil {
		return Session{}, err
	}

	if err := s.revoke(ctx, p); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Logout revokes the presented token when a denylist is configured.
func (s *AuthService) Logout(ctx context.Context, p domain.Principal, ip string) error {
	if err := s.revoke(ctx, p); err != nil {
		return err
	}
	s.auditor().Record(ctx, p.UserID, ActionLogout, ip)
	return nil
}

func (s *AuthService) revoke(ctx context.Context, p domain.Principal) error {
	if p.TokenID == "" {
		return nil
	}
	if err := s.denylist().Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return fmt.Errorf("%w: revoke token: %w", domain.ErrDependency, err)
	}
	return nil
}

// Me describes the caller from its token claims alone.
func (s *AuthService) Me(p domain.Principal) domain.Account {
	return domain.Account{ID: p.UserID, Email: p.Email, Role: p.Role, Name: p.Name}
}
