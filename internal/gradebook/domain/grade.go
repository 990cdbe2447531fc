package domain

import (
	"math"
	"strings"
	"time"
)

// Score bounds, inclusive.
const (
	MinScore = 0.0
	MaxScore = 5.0
)

// Grade is one score for a student in a subject and period.
type Grade struct {
	ID        int64
	StudentID int64
	Subject   string
	Score     float64
	Period    string
	CreatedBy *int64 // nil once the author account is deleted
	CreatedAt time.Time

	// Filled by listing queries.
	StudentName   string
	CreatedByName string
}

// GradeInput carries the mutable fields of a grade.
type GradeInput struct {
	StudentID int64
	Subject   string
	Score     float64
	Period    string
}

// Validate checks the input before anything is persisted.
func (in *GradeInput) Validate() error {
	f := Fields{}

	in.Subject = strings.TrimSpace(in.Subject)
	in.Period = strings.TrimSpace(in.Period)

	if in.StudentID <= 0 {
		f.Add("estudiante_id", "required")
	}
	if in.Subject == "" {
		f.Add("asignatura", "required")
	} else if len(in.Subject) > 100 {
		f.Add("asignatura", "too long (max 100)")
	}
	if in.Period == "" {
		f.Add("periodo", "required")
	} else if len(in.Period) > 20 {
		f.Add("periodo", "too long (max 20)")
	}
	if math.IsNaN(in.Score) || in.Score < MinScore || in.Score > MaxScore {
		f.Add("calificacion", "must be between 0 and 5.0")
	}

	return f.Err()
}
