package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/gate"
	gbhttp "github.com/aussiebroadwan/gradebook/internal/gradebook/http"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store/drivers/sqlite"
	"github.com/aussiebroadwan/gradebook/pkg/cryptox"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
	"github.com/aussiebroadwan/gradebook/pkg/jwtx"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "gradebook-http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const testPassword = "secret123"

type options struct {
	transport httpx.Transport
	mode      service.RegistrationMode
}

type server struct {
	handler http.Handler
	store   store.Store
	codec   *jwtx.Codec
	audit   *service.AuditService
	auth    *service.AuthService

	admin, teacher, student domain.Account
	studentID               int64
}

func newServer(t *testing.T, opts ...func(*options)) *server {
	t.Helper()

	o := options{transport: httpx.TransportAny, mode: service.RegistrationOpen}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "gradebook.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations(t.Context()))
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewCodec(testSecret, jwtx.WithIssuer("gradebook"))
	require.NoError(t, err)

	deny := jwtx.NewMemoryDenylist()
	audit := service.NewAuditService(st, slogx.Discard(), 64)
	audit.Start()
	t.Cleanup(audit.Stop)

	mfa := &service.MFAService{Store: st, Issuer: "Gradebook", Audit: audit}
	auth := &service.AuthService{
		Store:    st,
		Codec:    codec,
		Denylist: deny,
		Audit:    audit,
		MFA:      mfa,
		TTL:      time.Hour,
		Mode:     o.mode,
	}

	g := gate.New(codec, o.transport.Extractor(), deny, slogx.Discard())
	r := gbhttp.NewRouter(g, "test", st, slogx.Discard(), nil)
	r.Transport = o.transport
	r.CookieSecure = false
	r.AuthService = auth
	r.MFAService = mfa
	r.AccountService = &service.AccountService{Store: st, Audit: audit}
	r.GradeService = &service.GradeService{Store: st, Audit: audit}
	r.StudentService = &service.StudentService{Store: st}
	r.AuditService = audit
	r.ApplyRoutes()

	s := &server{handler: r, store: st, codec: codec, audit: audit, auth: auth}
	s.admin = s.seed(t, "admin@example.com", domain.RoleAdmin, "Ada Admin")
	s.teacher = s.seed(t, "profe@example.com", domain.RoleTeacher, "Pablo Profe")
	s.student = s.seed(t, "eva@example.com", domain.RoleStudent, "Eva Estudiante")

	stu, err := st.Students().GetByAccountID(t.Context(), s.student.ID)
	require.NoError(t, err)
	s.studentID = stu.ID
	return s
}

func withTransport(tr httpx.Transport) func(*options) {
	return func(o *options) { o.transport = tr }
}

func withMode(m service.RegistrationMode) func(*options) {
	return func(o *options) { o.mode = m }
}

// seed registers an account directly, bypassing the rate-limited endpoint.
func (s *server) seed(t *testing.T, email string, role domain.Role, name string) domain.Account {
	t.Helper()
	mode := s.auth.Mode
	s.auth.Mode = service.RegistrationOpen
	defer func() { s.auth.Mode = mode }()

	acc, err := s.auth.Register(t.Context(), nil, service.RegisterInput{
		Email: email, Password: testPassword, Role: string(role), Name: name,
	})
	require.NoError(t, err)
	return acc
}

// token mints a session token for acc without going through login.
func (s *server) token(t *testing.T, acc domain.Account) string {
	t.Helper()
	tok, err := s.codec.Issue(jwtx.NewSessionClaims(acc.Email, string(acc.Role), acc.ID, acc.Name), time.Hour)
	require.NoError(t, err)
	return tok
}

func newRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func serve(s *server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *server) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	req := newRequest(t, method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(s, req)
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]any](t, rec)
	if c, ok := body["error"].(string); ok {
		return c
	}
	c, _ := body["code"].(string)
	return c
}

func TestSystemEndpoints(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		path string
		want map[string]any
	}{
		{"/", map[string]any{"message": "Sistema de Notas Seguro - API funcionando correctamente"}},
		{"/health", map[string]any{"status": "healthy", "service": "sistema-notas"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, "", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, tt.want, decode[map[string]any](t, rec))
		})
	}

	t.Run("livez", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/livez", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]any](t, rec)
		require.Equal(t, "ok", body["status"])
		require.Equal(t, "test", body["version"])
	})

	t.Run("readyz", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]any](t, rec)
		require.Equal(t, "ok", body["status"])
		require.Equal(t, "ok", body["checks"].(map[string]any)["database"])
	})

	t.Run("readyz degraded", func(t *testing.T) {
		require.NoError(t, s.store.Close())
		rec := s.do(t, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "degraded", decode[map[string]any](t, rec)["status"])
	})
}

func TestSwaggerServed(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/api/auth/login")
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/nope", "", nil).Code)
}
