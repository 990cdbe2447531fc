package http_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
	"github.com/stretchr/testify/require"
)

func TestGrades_Lifecycle(t *testing.T) {
	s := newServer(t)
	teacher := s.token(t, s.teacher)
	admin := s.token(t, s.admin)

	rec := s.do(t, http.MethodPost, "/notas", teacher, gradesdk.GradeRequest{
		EstudianteID: s.studentID, Asignatura: "Matemáticas", Calificacion: gradesdk.Score(4.5), Periodo: "2025-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[gradesdk.Grade](t, rec)
	require.Equal(t, s.studentID, created.EstudianteID)
	require.Equal(t, "Eva Estudiante", created.EstudianteNombre)
	require.Equal(t, 4.5, created.Calificacion)
	require.NotNil(t, created.CreadoPor)
	require.Equal(t, s.teacher.ID, *created.CreadoPor)
	require.Equal(t, "Pablo Profe", created.CreadoPorNombre)

	gradePath := fmt.Sprintf("/notas/%d", created.ID)

	t.Run("listed for staff", func(t *testing.T) {
		for _, path := range []string{"/notas", "/notas/"} {
			rec := s.do(t, http.MethodGet, path, admin, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			grades := decode[[]gradesdk.Grade](t, rec)
			require.Len(t, grades, 1)
			require.Equal(t, created.ID, grades[0].ID)
		}
	})

	t.Run("listed for the student", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/notas/mias", s.token(t, s.student), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, decode[[]gradesdk.Grade](t, rec), 1)
	})

	t.Run("update", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, gradePath, teacher, gradesdk.GradeRequest{
			EstudianteID: s.studentID, Asignatura: "Álgebra", Calificacion: gradesdk.Score(3.2), Periodo: "2025-2",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[gradesdk.Grade](t, rec)
		require.Equal(t, "Álgebra", updated.Asignatura)
		require.Equal(t, 3.2, updated.Calificacion)
		require.Equal(t, "2025-2", updated.Periodo)
	})

	t.Run("teacher cannot delete", func(t *testing.T) {
		require.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, gradePath, teacher, nil).Code)
	})

	t.Run("admin deletes", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, gradePath, admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Nota eliminada correctamente", decode[gradesdk.MessageResponse](t, rec).Message)

		require.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, gradePath, admin, nil).Code)
	})
}

func TestGrades_Rejects(t *testing.T) {
	s := newServer(t)
	teacher := s.token(t, s.teacher)

	valid := gradesdk.GradeRequest{EstudianteID: s.studentID, Asignatura: "Historia", Calificacion: gradesdk.Score(3), Periodo: "2025-1"}
	with := func(f func(*gradesdk.GradeRequest)) gradesdk.GradeRequest {
		r := valid
		f(&r)
		return r
	}

	noScore := map[string]any{"estudiante_id": s.studentID, "asignatura": "Historia", "periodo": "2025-1"}

	tests := []struct {
		name      string
		method    string
		path      string
		body      any
		wantCode  int
		wantField string
	}{
		{"score above range", http.MethodPost, "/notas", with(func(r *gradesdk.GradeRequest) { r.Calificacion = gradesdk.Score(5.01) }), http.StatusBadRequest, "calificacion"},
		{"score below range", http.MethodPost, "/notas", with(func(r *gradesdk.GradeRequest) { r.Calificacion = gradesdk.Score(-0.5) }), http.StatusBadRequest, "calificacion"},
		{"empty subject", http.MethodPost, "/notas", with(func(r *gradesdk.GradeRequest) { r.Asignatura = "  " }), http.StatusBadRequest, "asignatura"},
		{"empty period", http.MethodPost, "/notas", with(func(r *gradesdk.GradeRequest) { r.Periodo = "" }), http.StatusBadRequest, "periodo"},
		{"unknown student", http.MethodPost, "/notas", with(func(r *gradesdk.GradeRequest) { r.EstudianteID = 999999 }), http.StatusNotFound, ""},
		{"update out of range", http.MethodPut, "/notas/1", with(func(r *gradesdk.GradeRequest) { r.Calificacion = gradesdk.Score(7) }), http.StatusBadRequest, "calificacion"},
		{"missing score", http.MethodPost, "/notas", noScore, http.StatusBadRequest, "calificacion"},
		{"null score", http.MethodPost, "/notas", map[string]any{"estudiante_id": s.studentID, "asignatura": "Historia", "calificacion": nil, "periodo": "2025-1"}, http.StatusBadRequest, "calificacion"},
		{"update missing score", http.MethodPut, "/notas/1", noScore, http.StatusBadRequest, "calificacion"},
		{"update missing grade", http.MethodPut, "/notas/999999", valid, http.StatusNotFound, ""},
		{"non-numeric id", http.MethodPut, "/notas/abc", valid, http.StatusBadRequest, "id"},
		{"bad json", http.MethodPost, "/notas", "not an object", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, teacher, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantField != "" {
				resp := decode[gradesdk.ValidationErrorResponse](t, rec)
				require.Equal(t, "validation_error", resp.Code)
				require.Contains(t, resp.Details, tt.wantField)
			}
		})
	}

	grades, err := s.store.Grades().List(t.Context())
	require.NoError(t, err)
	require.Empty(t, grades, "rejected requests must not persist anything")
}

func gradeFor(s *server, score float64) domain.Grade {
	return domain.Grade{
		StudentID: s.studentID,
		Subject:   "Química",
		Score:     score,
		Period:    "2025-1",
		CreatedBy: &s.teacher.ID,
		CreatedAt: time.Now(),
	}
}

func TestStudents(t *testing.T) {
	s := newServer(t)

	_, err := s.store.Grades().Create(t.Context(), gradeFor(s, 4.0))
	require.NoError(t, err)
	_, err = s.store.Grades().Create(t.Context(), gradeFor(s, 3.5))
	require.NoError(t, err)
	other := s.seed(t, "zoe@example.com", domain.RoleStudent, "Zoe Zapata")

	rec := s.do(t, http.MethodGet, "/api/estudiantes", s.token(t, s.teacher), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	students := decode[[]gradesdk.StudentSummary](t, rec)
	require.Len(t, students, 2)

	require.Equal(t, "Eva Estudiante", students[0].Nombre)
	require.Equal(t, 3.75, students[0].Promedio)
	require.Equal(t, "activo", students[0].Estado)
	require.Equal(t, "N/A", students[0].Curso)
	require.Equal(t, "eva@example.com", students[0].Email)

	require.Equal(t, "Zoe Zapata", students[1].Nombre)
	require.Equal(t, other.Email, students[1].Email)
	require.Equal(t, 0.0, students[1].Promedio)
	require.Equal(t, "bajo rendimiento", students[1].Estado)
}

func TestAudit(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", gradesdk.LoginRequest{
		Email: "profe@example.com", Password: testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	s.audit.Stop()

	rec = s.do(t, http.MethodGet, "/auditoria/", s.token(t, s.admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]gradesdk.AuditEntry](t, rec)
	require.NotEmpty(t, entries)
	require.Equal(t, service.ActionLogin, entries[0].Accion)
	require.Equal(t, "Pablo Profe", entries[0].Usuario)
	require.Equal(t, "192.0.2.1", entries[0].IP)

	rec = s.do(t, http.MethodGet, "/auditoria?limit=1", s.token(t, s.admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]gradesdk.AuditEntry](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/auditoria?limit=-3", s.token(t, s.admin), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
