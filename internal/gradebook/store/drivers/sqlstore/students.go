package sqlstore

import (
	"context"
	"math"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
)

type studentsRepo struct {
	c conn
}

func (r *studentsRepo) Create(ctx context.Context, s domain.Student) (int64, error) {
	var id int64
	err := r.c.queryRow(ctx,
		`INSERT INTO estudiantes (usuario_id, codigo_estudiante, nombre) VALUES (?, ?, ?) RETURNING id`,
		s.AccountID, s.Code, s.Name,
	).Scan(&id)
	if err != nil {
		return 0, r.c.mapWriteErr(err)
	}
	return id, nil
}

func (r *studentsRepo) GetByID(ctx context.Context, id int64) (domain.Student, error) {
	var s domain.Student
	err := r.c.queryRow(ctx,
		`SELECT id, usuario_id, codigo_estudiante, nombre FROM estudiantes WHERE id = ?`, id,
	).Scan(&s.ID, &s.AccountID, &s.Code, &s.Name)
	if err != nil {
		return domain.Student{}, mapNotFound(err)
	}
	return s, nil
}

func (r *studentsRepo) GetByAccountID(ctx context.Context, accountID int64) (domain.Student, error) {
	var s domain.Student
	err := r.c.queryRow(ctx,
		`SELECT id, usuario_id, codigo_estudiante, nombre FROM estudiantes WHERE usuario_id = ?`, accountID,
	).Scan(&s.ID, &s.AccountID, &s.Code, &s.Name)
	if err != nil {
		return domain.Student{}, mapNotFound(err)
	}
	return s, nil
}

func (r *studentsRepo) ListSummaries(ctx context.Context) ([]domain.StudentSummary, error) {
	rows, err := r.c.query(ctx, `
		SELECT e.id, e.codigo_estudiante, u.nombre, u.email, COALESCE(AVG(n.calificacion), 0)
		FROM estudiantes e
		JOIN usuarios u ON e.usuario_id = u.id
		LEFT JOIN notas n ON n.estudiante_id = e.id
		WHERE u.rol = ?
		GROUP BY e.id, e.codigo_estudiante, u.nombre, u.email
		ORDER BY u.nombre, e.id`, string(domain.RoleStudent))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StudentSummary
	for rows.Next() {
		var s domain.StudentSummary
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Email, &s.Average); err != nil {
			return nil, err
		}
		s.Average = math.Round(s.Average*100) / 100
		out = append(out, s)
	}
	return out, rows.Err()
}
