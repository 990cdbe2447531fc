package gradesdk

import (
	"context"
	"net/http"
	"strconv"
)

// ListGrades returns every grade, newest first. Requires admin or profesor.
func (s *Session) ListGrades(ctx context.Context) ([]Grade, error) {
	var out []Grade
	if err := s.do(ctx, http.MethodGet, "/notas", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// MyGrades returns the caller's own grades. Requires estudiante.
func (s *Session) MyGrades(ctx context.Context) ([]Grade, error) {
	var out []Grade
	if err := s.do(ctx, http.MethodGet, "/notas/mias", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGrade records a grade. Requires admin or profesor.
func (s *Session) CreateGrade(ctx context.Context, req GradeRequest) (*Grade, error) {
	var out Grade
	if err := s.do(ctx, http.MethodPost, "/notas", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGrade replaces subject, score and period. Requires admin or profesor.
func (s *Session) UpdateGrade(ctx context.Context, id int64, req GradeRequest) (*Grade, error) {
	var out Grade
	if err := s.do(ctx, http.MethodPut, "/notas/"+strconv.FormatInt(id, 10), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGrade removes a grade. Requires admin.
func (s *Session) DeleteGrade(ctx context.Context, id int64) error {
	return s.do(ctx, http.MethodDelete, "/notas/"+strconv.FormatInt(id, 10), nil, nil, http.StatusOK)
}

// ListStudents returns student summaries. Requires admin or profesor.
func (s *Session) ListStudents(ctx context.Context) ([]StudentSummary, error) {
	var out []StudentSummary
	if err := s.do(ctx, http.MethodGet, "/api/estudiantes", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}
