package http_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
	"github.com/stretchr/testify/require"
)

func TestUsers_List(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/usuarios/", s.token(t, s.admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	users := decode[[]gradesdk.Account](t, rec)
	require.Len(t, users, 3)
	require.Equal(t, "admin@example.com", users[0].Email)
	require.Equal(t, "profesor", users[1].Rol)
	require.False(t, users[2].MFAHabilitado)
	require.NotContains(t, rec.Body.String(), "password")
}

func TestUsers_Get(t *testing.T) {
	s := newServer(t)
	admin := s.token(t, s.admin)

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/usuarios/%d", s.student.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	acc := decode[gradesdk.Account](t, rec)
	require.Equal(t, "Eva Estudiante", acc.Nombre)
	require.Equal(t, "estudiante", acc.Rol)

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/usuarios/999999", http.StatusNotFound},
		{"/usuarios/abc", http.StatusBadRequest},
		{"/usuarios/0", http.StatusBadRequest},
		{"/usuarios/-4", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.wantCode, s.do(t, http.MethodGet, tt.path, admin, nil).Code)
		})
	}
}

func TestUsers_Delete(t *testing.T) {
	s := newServer(t)
	admin := s.token(t, s.admin)

	_, err := s.store.Grades().Create(t.Context(), gradeFor(s, 2.5))
	require.NoError(t, err)

	t.Run("self", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, fmt.Sprintf("/usuarios/%d", s.admin.ID), admin, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, decode[gradesdk.ValidationErrorResponse](t, rec).Details, "id")
	})

	t.Run("missing", func(t *testing.T) {
		require.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/usuarios/999999", admin, nil).Code)
	})

	t.Run("student cascades", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, fmt.Sprintf("/usuarios/%d", s.student.ID), admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Usuario eliminado correctamente", decode[gradesdk.MessageResponse](t, rec).Message)

		_, err := s.store.Accounts().GetByID(t.Context(), s.student.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		grades, err := s.store.Grades().List(t.Context())
		require.NoError(t, err)
		require.Empty(t, grades)
	})
}
