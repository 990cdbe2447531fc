package http

import (
	"errors"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
)

func toPublicUser(a domain.Account) gradesdk.PublicUser {
	return gradesdk.PublicUser{
		ID:     a.ID,
		Email:  a.Email,
		Rol:    string(a.Role),
		Nombre: a.Name,
	}
}

func toAccount(a domain.Account) gradesdk.Account {
	return gradesdk.Account{
		ID:            a.ID,
		Email:         a.Email,
		Rol:           string(a.Role),
		Nombre:        a.Name,
		MFAHabilitado: a.MFAEnabled(),
		CreadoEn:      a.CreatedAt,
	}
}

func toGrade(g domain.Grade) gradesdk.Grade {
	return gradesdk.Grade{
		ID:               g.ID,
		EstudianteID:     g.StudentID,
		EstudianteNombre: g.StudentName,
		Asignatura:       g.Subject,
		Calificacion:     g.Score,
		Periodo:          g.Period,
		CreadoPor:        g.CreatedBy,
		CreadoPorNombre:  g.CreatedByName,
		CreadoEn:         g.CreatedAt,
	}
}

func toStudentSummary(s domain.StudentSummary) gradesdk.StudentSummary {
	return gradesdk.StudentSummary{
		ID:               s.ID,
		CodigoEstudiante: s.Code,
		Nombre:           s.Name,
		Email:            s.Email,
		Curso:            domain.NoCourse,
		Promedio:         s.Average,
		Estado:           s.Status(),
	}
}

func toAuditEntry(e domain.AuditEntry) gradesdk.AuditEntry {
	return gradesdk.AuditEntry{
		ID:        e.ID,
		UsuarioID: e.AccountID,
		Usuario:   e.ActorName,
		Accion:    e.Action,
		Fecha:     e.At,
		IP:        e.IP,
	}
}

// mapSlice converts a list and never returns nil, so empty lists encode
// as [] rather than null.
func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

// toGradeInput maps a grade body. An absent score is reported along with
// any other field errors, since it would otherwise decode as a valid 0.
func toGradeInput(req gradesdk.GradeRequest) (domain.GradeInput, error) {
	in := domain.GradeInput{
		StudentID: req.EstudianteID,
		Subject:   req.Asignatura,
		Period:    req.Periodo,
	}
	if req.Calificacion != nil {
		in.Score = *req.Calificacion
		return in, nil
	}

	f := domain.Fields{}
	f.Add("calificacion", "required")
	var ve *domain.ValidationError
	if errors.As(in.Validate(), &ve) {
		for field, reason := range ve.Fields {
			f.Add(field, reason)
		}
	}
	return in, f.Err()
}
