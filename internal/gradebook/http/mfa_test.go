package http_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestMFA_Flow(t *testing.T) {
	s := newServer(t)
	tok := s.token(t, s.teacher)

	rec := s.do(t, http.MethodPost, "/api/auth/mfa/setup", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	setup := decode[gradesdk.MFASetupResponse](t, rec)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.OTPAuthURL, "otpauth://totp/")
	require.Equal(t, "profe@example.com", setup.Account)

	t.Run("wrong code keeps MFA off", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/mfa/enable", tok, gradesdk.MFACodeRequest{Code: "000000"})
		if rec.Code == http.StatusOK {
			t.Skip("000000 happened to be the current code")
		}
		require.Equal(t, http.StatusBadRequest, rec.Code)

		login := s.do(t, http.MethodPost, "/api/auth/login", "", gradesdk.LoginRequest{
			Email: "profe@example.com", Password: testPassword,
		})
		require.Equal(t, http.StatusOK, login.Code)
	})

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	rec = s.do(t, http.MethodPost, "/api/auth/mfa/enable", tok, gradesdk.MFACodeRequest{Code: code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "MFA habilitado", decode[gradesdk.MessageResponse](t, rec).Message)

	t.Run("setup again conflicts", func(t *testing.T) {
		require.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/auth/mfa/setup", tok, nil).Code)
	})

	t.Run("login requires code", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/login", "", gradesdk.LoginRequest{
			Email: "profe@example.com", Password: testPassword,
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "mfa_required", errorCode(t, rec))

		code, err := totp.GenerateCode(setup.Secret, time.Now())
		require.NoError(t, err)
		rec = s.do(t, http.MethodPost, "/api/auth/login", "", gradesdk.LoginRequest{
			Email: "profe@example.com", Password: testPassword, OTP: code,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("listed as enabled", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/usuarios", s.token(t, s.admin), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		for _, u := range decode[[]gradesdk.Account](t, rec) {
			require.Equal(t, u.ID == s.teacher.ID, u.MFAHabilitado, u.Email)
		}
	})

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/api/auth/mfa/disable", tok, gradesdk.MFACodeRequest{Code: code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "MFA deshabilitado", decode[gradesdk.MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodPost, "/api/auth/mfa/disable", tok, gradesdk.MFACodeRequest{Code: code})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
