package gradesdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestParseErrorResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantDesc string
		details  map[string]string
	}{
		{
			name:     "oauth style",
			status:   http.StatusUnauthorized,
			body:     `{"error":"invalid_credentials","error_description":"Credenciales incorrectas"}`,
			wantCode: ErrorCodeInvalidCredential,
			wantDesc: "Credenciales incorrectas",
		},
		{
			name:     "validation",
			status:   http.StatusBadRequest,
			body:     `{"code":"validation_error","message":"invalid input","details":{"calificacion":"must be between 0 and 5"}}`,
			wantCode: ErrorCodeValidation,
			wantDesc: "invalid input",
			details:  map[string]string{"calificacion": "must be between 0 and 5"},
		},
		{
			name:     "not json",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantCode: ErrorCodeServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseErrorResponse(&http.Response{StatusCode: tt.status}, []byte(tt.body))
			require.Error(t, err)

			apiErr, ok := err.(*APIError)
			require.True(t, ok)
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, tt.wantCode, apiErr.Code)
			if tt.wantDesc != "" {
				require.Equal(t, tt.wantDesc, apiErr.Description)
			}
			require.Equal(t, tt.details, apiErr.Details)
			require.Equal(t, tt.status, StatusCode(err))
		})
	}

	require.NoError(t, parseErrorResponse(&http.Response{StatusCode: http.StatusOK}, nil))
}

func TestLogin_MFARequired(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.OTP == "" {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorCodeMFARequired})
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{
			Message:     "Login exitoso",
			User:        PublicUser{ID: 7, Email: req.Email, Rol: "profesor"},
			AccessToken: "tok-1",
			TokenType:   "bearer",
			ExpiresIn:   3600,
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)

	_, err := c.Login(t.Context(), "p@example.com", "pw", "")
	require.True(t, IsMFARequired(err))

	s, err := c.Login(t.Context(), "p@example.com", "pw", "123456")
	require.NoError(t, err)
	require.Equal(t, "tok-1", s.AccessToken())
	require.Equal(t, int64(7), s.User().ID)
}

func TestLogin_CookieOnlyServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, LoginResponse{Message: "Login exitoso", ExpiresIn: 3600})
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Login(t.Context(), "p@example.com", "pw", "")
	require.ErrorContains(t, err, "did not return a token")
}

func TestSession_RefreshesBeforeExpiry(t *testing.T) {
	t.Parallel()

	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			refreshes.Add(1)
			require.Equal(t, "Bearer old", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, RefreshResponse{
				AccessTokenRefreshed: true,
				AccessToken:          "new",
				TokenType:            "bearer",
				ExpiresIn:            3600,
			})
		case "/api/auth/me":
			require.Equal(t, "Bearer new", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, PublicUser{ID: 1, Email: "a@example.com", Rol: "admin"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	// Ten seconds left is inside the refresh buffer.
	s := NewClient(srv.URL).NewSessionFromToken(PublicUser{ID: 1}, "old", 10)

	me, err := s.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, "admin", me.Rol)
	require.Equal(t, int32(1), refreshes.Load())
	require.Equal(t, "new", s.AccessToken())

	s.mu.RLock()
	require.WithinDuration(t, time.Now().Add(time.Hour), s.expiresAt, 5*time.Second)
	s.mu.RUnlock()

	_, err = s.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, int32(1), refreshes.Load(), "a fresh token is not refreshed again")
}

func TestSession_CreateGradeValidation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/notas", r.URL.Path)
		writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Code:    ErrorCodeValidation,
			Message: "invalid input",
			Details: map[string]string{"calificacion": "must be between 0 and 5"},
		})
	}))
	t.Cleanup(srv.Close)

	s := NewClient(srv.URL).NewSessionFromToken(PublicUser{ID: 1}, "tok", 3600)
	_, err := s.CreateGrade(t.Context(), GradeRequest{EstudianteID: 1, Asignatura: "X", Calificacion: Score(9), Periodo: "P"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Contains(t, apiErr.Details, "calificacion")
}
