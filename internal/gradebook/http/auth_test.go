package http_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestLogin_Transports(t *testing.T) {
	tests := []struct {
		transport  httpx.Transport
		wantCookie bool
		wantBody   bool
	}{
		{httpx.TransportBearer, false, true},
		{httpx.TransportCookie, true, false},
		{httpx.TransportAny, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.transport), func(t *testing.T) {
			s := newServer(t, withTransport(tt.transport))

			rec := s.do(t, http.MethodPost, "/api/auth/login", "", gradesdk.LoginRequest{
				Email: "PROFE@example.com", Password: testPassword,
			})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

			resp := decode[gradesdk.LoginResponse](t, rec)
			require.Equal(t, "Login exitoso", resp.Message)
			require.Equal(t, gradesdk.PublicUser{
				ID: s.teacher.ID, Email: "profe@example.com", Rol: "profesor", Nombre: "Pablo Profe",
			}, resp.User)
			require.Equal(t, 3600, resp.ExpiresIn)

			cookie := findCookie(rec, httpx.TokenCookieName)
			if tt.wantCookie {
				require.NotNil(t, cookie)
				require.True(t, cookie.HttpOnly)
				require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
				require.Equal(t, 3600, cookie.MaxAge)
				require.NotEmpty(t, cookie.Value)
			} else {
				require.Nil(t, cookie)
			}

			if tt.wantBody {
				require.NotEmpty(t, resp.AccessToken)
				require.Equal(t, "bearer", resp.TokenType)
			} else {
				require.Empty(t, resp.AccessToken)
			}
		})
	}
}

func TestLogin_CookieAuthenticates(t *testing.T) {
	s := newServer(t, withTransport(httpx.TransportCookie))

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", gradesdk.LoginRequest{
		Email: "eva@example.com", Password: testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(rec, httpx.TokenCookieName)
	require.NotNil(t, cookie)

	req := newRequest(t, http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	me := serve(s, req)
	require.Equal(t, http.StatusOK, me.Code)
	require.Equal(t, "estudiante", decode[gradesdk.PublicUser](t, me).Rol)

	// Bearer is not accepted when only cookies are configured.
	require.Equal(t, http.StatusUnauthorized,
		s.do(t, http.MethodGet, "/api/auth/me", cookie.Value, nil).Code)
}

func TestLogin_Failures(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"wrong password", gradesdk.LoginRequest{Email: "profe@example.com", Password: "nope"}, http.StatusUnauthorized, "invalid_credentials"},
		{"unknown email", gradesdk.LoginRequest{Email: "ghost@example.com", Password: testPassword}, http.StatusUnauthorized, "invalid_credentials"},
		{"missing fields", gradesdk.LoginRequest{}, http.StatusBadRequest, "validation_error"},
		{"unknown field", map[string]string{"email": "a@b.c", "password": "x", "extra": "y"}, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			require.Equal(t, tt.wantErr, errorCode(t, rec))
			require.Nil(t, findCookie(rec, httpx.TokenCookieName))
		})
	}
}

func TestLogin_RateLimited(t *testing.T) {
	s := newServer(t)

	var last int
	for range httpx.StrictLimit.Burst + 1 {
		last = s.do(t, http.MethodPost, "/api/auth/login", "", gradesdk.LoginRequest{
			Email: "profe@example.com", Password: "wrong-password",
		}).Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}

func TestLogin_RateLimitedAcrossAddresses(t *testing.T) {
	s := newServer(t)

	throttled := 0
	for i := range 30 {
		req := newRequest(t, http.MethodPost, "/api/auth/login", gradesdk.LoginRequest{
			Email: "admin@example.com", Password: "wrong-password",
		})
		req.RemoteAddr = fmt.Sprintf("198.51.100.%d:4321", i+1)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))

		if serve(s, req).Code == http.StatusTooManyRequests {
			throttled++
		}
	}
	require.Equal(t, 30-httpx.StrictLimit.Burst, throttled)
}

func TestRegister(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", gradesdk.RegisterRequest{
		Email: "new@example.com", Password: testPassword, Rol: "estudiante", Nombre: "Nuevo",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[gradesdk.PublicUser](t, rec)
	require.Equal(t, "new@example.com", user.Email)
	require.Equal(t, "estudiante", user.Rol)

	stu, err := s.store.Students().GetByAccountID(t.Context(), user.ID)
	require.NoError(t, err)
	require.Regexp(t, `^EST\d{3,}$`, stu.Code)

	t.Run("duplicate", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/register", "", gradesdk.RegisterRequest{
			Email: "NEW@example.com", Password: testPassword, Rol: "profesor", Nombre: "Otro",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/register", "", gradesdk.RegisterRequest{
			Email: "x@example.com", Password: testPassword, Rol: "director", Nombre: "X",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[gradesdk.ValidationErrorResponse](t, rec)
		require.Equal(t, "validation_error", resp.Code)
		require.Contains(t, resp.Details, "rol")
	})
}

func TestRegister_AdminMode(t *testing.T) {
	s := newServer(t, withMode(service.RegistrationAdmin))
	req := gradesdk.RegisterRequest{Email: "n@example.com", Password: testPassword, Rol: "profesor", Nombre: "N"}

	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/auth/register", "", req).Code)
	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/auth/register", "garbage", req).Code)
	require.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/auth/register", s.token(t, s.teacher), req).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/auth/register", s.token(t, s.admin), req).Code)
}

func TestMe(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/auth/me", s.token(t, s.admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, gradesdk.PublicUser{
		ID: s.admin.ID, Email: "admin@example.com", Rol: "admin", Nombre: "Ada Admin",
	}, decode[gradesdk.PublicUser](t, rec))

	rec = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
}

func TestRefresh_RevokesOldToken(t *testing.T) {
	s := newServer(t)
	old := s.token(t, s.teacher)

	rec := s.do(t, http.MethodPost, "/api/auth/refresh", old, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[gradesdk.RefreshResponse](t, rec)
	require.True(t, resp.AccessTokenRefreshed)
	require.NotEmpty(t, resp.AccessToken)
	require.NotNil(t, findCookie(rec, httpx.TokenCookieName))

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/auth/me", resp.AccessToken, nil).Code)
	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/me", old, nil).Code)
}

func TestLogout(t *testing.T) {
	s := newServer(t)
	tok := s.token(t, s.student)

	rec := s.do(t, http.MethodPost, "/api/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Sesión cerrada", decode[gradesdk.MessageResponse](t, rec).Message)

	cookie := findCookie(rec, httpx.TokenCookieName)
	require.NotNil(t, cookie)
	require.Negative(t, cookie.MaxAge)

	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/me", tok, nil).Code)

	t.Run("anonymous", func(t *testing.T) {
		require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/auth/logout", "", nil).Code)
	})
}
