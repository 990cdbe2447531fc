package service_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store/drivers/sqlite"
	"github.com/aussiebroadwan/gradebook/pkg/cryptox"
	"github.com/aussiebroadwan/gradebook/pkg/jwtx"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "gradebook-service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "gradebook.db"))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations(t.Context()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// env bundles the services over one store, the way the app wires them.
type env struct {
	store    store.Store
	codec    *jwtx.Codec
	denylist *jwtx.MemoryDenylist
	audit    *service.AuditService
	auth     *service.AuthService
	mfa      *service.MFAService
	accounts *service.AccountService
	grades   *service.GradeService
	students *service.StudentService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	s := newTestStore(t)
	codec, err := jwtx.NewCodec(testSecret, jwtx.WithIssuer("gradebook"))
	require.NoError(t, err)

	audit := service.NewAuditService(s, slogx.Discard(), 64)
	audit.Start()

	deny := jwtx.NewMemoryDenylist()
	mfa := &service.MFAService{Store: s, Issuer: "Gradebook", Audit: audit}

	e := &env{
		store:    s,
		codec:    codec,
		denylist: deny,
		audit:    audit,
		mfa:      mfa,
		auth: &service.AuthService{
			Store:    s,
			Codec:    codec,
			Denylist: deny,
			Audit:    audit,
			MFA:      mfa,
			TTL:      time.Hour,
			Mode:     service.RegistrationOpen,
		},
		accounts: &service.AccountService{Store: s, Audit: audit},
		grades:   &service.GradeService{Store: s, Audit: audit},
		students: &service.StudentService{Store: s},
	}

	t.Cleanup(audit.Stop)
	return e
}

// flushAudit stops the writer so every queued entry is in the store. Call
// it once, after the actions under test.
func (e *env) flushAudit(t *testing.T) []domain.AuditEntry {
	t.Helper()
	e.audit.Stop()

	entries, err := e.store.Audit().List(t.Context(), 100)
	require.NoError(t, err)
	return entries
}

func (e *env) register(t *testing.T, email string, role domain.Role, name string) domain.Account {
	t.Helper()
	acc, err := e.auth.Register(t.Context(), nil, service.RegisterInput{
		Email: email, Password: "secret123", Role: string(role), Name: name,
	})
	require.NoError(t, err)
	return acc
}

func (e *env) principal(acc domain.Account) domain.Principal {
	return domain.Principal{UserID: acc.ID, Email: acc.Email, Role: acc.Role, Name: acc.Name}
}

func actionsOf(entries []domain.AuditEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}
