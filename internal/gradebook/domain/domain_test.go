package domain_test

import (
	"errors"
	"math"
	"testing"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, r := range domain.Roles() {
		got, err := domain.ParseRole(string(r))
		require.NoError(t, err)
		require.Equal(t, r, got)
	}

	for _, bad := range []string{"", "Admin", "teacher", "superuser"} {
		_, err := domain.ParseRole(bad)
		require.ErrorIs(t, err, domain.ErrValidation, bad)
	}
}

func TestPrincipalHasRole(t *testing.T) {
	p := domain.Principal{Role: domain.RoleStudent}

	require.True(t, p.HasRole(domain.RoleStudent))
	require.True(t, p.HasRole(domain.RoleAdmin, domain.RoleStudent))
	require.False(t, p.HasRole(domain.RoleAdmin))
	require.False(t, p.HasRole())
}

func TestGradeInputValidate(t *testing.T) {
	valid := func() domain.GradeInput {
		return domain.GradeInput{StudentID: 1, Subject: " Matemáticas ", Score: 4.2, Period: "2024-1"}
	}

	tests := []struct {
		name      string
		mutate    func(*domain.GradeInput)
		wantField string
	}{
		{"valid", func(*domain.GradeInput) {}, ""},
		{"upper bound inclusive", func(in *domain.GradeInput) { in.Score = 5.0 }, ""},
		{"lower bound inclusive", func(in *domain.GradeInput) { in.Score = 0 }, ""},
		{"above range", func(in *domain.GradeInput) { in.Score = 5.5 }, "calificacion"},
		{"negative", func(in *domain.GradeInput) { in.Score = -0.1 }, "calificacion"},
		{"nan", func(in *domain.GradeInput) { in.Score = math.NaN() }, "calificacion"},
		{"missing student", func(in *domain.GradeInput) { in.StudentID = 0 }, "estudiante_id"},
		{"blank subject", func(in *domain.GradeInput) { in.Subject = "   " }, "asignatura"},
		{"blank period", func(in *domain.GradeInput) { in.Period = "" }, "periodo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			err := in.Validate()

			if tt.wantField == "" {
				require.NoError(t, err)
				require.Equal(t, "Matemáticas", in.Subject, "input is trimmed")
				return
			}

			require.ErrorIs(t, err, domain.ErrValidation)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			require.Contains(t, verr.Fields, tt.wantField)
		})
	}
}

func TestStudentSummaryStatus(t *testing.T) {
	require.Equal(t, domain.StatusActive, domain.StudentSummary{Average: 3}.Status())
	require.Equal(t, domain.StatusActive, domain.StudentSummary{Average: 4.5}.Status())
	require.Equal(t, domain.StatusLowPerformance, domain.StudentSummary{Average: 2.99}.Status())
	require.Equal(t, domain.StatusLowPerformance, domain.StudentSummary{}.Status())
}

func TestStudentCode(t *testing.T) {
	require.Equal(t, "EST007", domain.StudentCode(7))
	require.Equal(t, "EST123", domain.StudentCode(123))
	require.Equal(t, "EST1234", domain.StudentCode(1234))
}

func TestValidationError(t *testing.T) {
	err := domain.NewValidationError("rol", "unknown role")
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Equal(t, "rol: unknown role", err.Error())

	f := domain.Fields{}
	require.NoError(t, f.Err())
	f.Add("b", "x")
	f.Add("a", "y")
	f.Add("a", "ignored")
	require.Equal(t, "invalid input: a: y, b: x", f.Err().Error())
}
