package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
)

const gradeSelect = `
	SELECT n.id, n.estudiante_id, n.asignatura, n.calificacion, n.periodo, n.creado_por, n.creado_en,
	       u.nombre, COALESCE(p.nombre, '')
	FROM notas n
	JOIN estudiantes e ON n.estudiante_id = e.id
	JOIN usuarios u ON e.usuario_id = u.id
	LEFT JOIN usuarios p ON n.creado_por = p.id`

type gradesRepo struct {
	c conn
}

func scanGrade(row interface{ Scan(...any) error }) (domain.Grade, error) {
	var (
		g         domain.Grade
		createdBy sql.NullInt64
	)
	err := row.Scan(&g.ID, &g.StudentID, &g.Subject, &g.Score, &g.Period, &createdBy, &g.CreatedAt,
		&g.StudentName, &g.CreatedByName)
	if err != nil {
		return domain.Grade{}, err
	}
	g.CreatedBy = mapNullInt64Ptr(createdBy)
	g.CreatedAt = g.CreatedAt.UTC()
	return g, nil
}

func (r *gradesRepo) Create(ctx context.Context, g domain.Grade) (int64, error) {
	createdAt := g.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := r.c.queryRow(ctx,
		`INSERT INTO notas (estudiante_id, asignatura, calificacion, periodo, creado_por, creado_en)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		g.StudentID, g.Subject, g.Score, g.Period, mapOptionalInt64(g.CreatedBy), dbTime(createdAt),
	).Scan(&id)
	if err != nil {
		return 0, r.c.mapWriteErr(err)
	}
	return id, nil
}

func (r *gradesRepo) Get(ctx context.Context, id int64) (domain.Grade, error) {
	g, err := scanGrade(r.c.queryRow(ctx, gradeSelect+` WHERE n.id = ?`, id))
	if err != nil {
		return domain.Grade{}, mapNotFound(err)
	}
	return g, nil
}

func (r *gradesRepo) Update(ctx context.Context, id int64, in domain.GradeInput) error {
	return requireAffected(r.c.exec(ctx,
		`UPDATE notas SET asignatura = ?, calificacion = ?, periodo = ? WHERE id = ?`,
		in.Subject, in.Score, in.Period, id))
}

func (r *gradesRepo) Delete(ctx context.Context, id int64) error {
	return requireAffected(r.c.exec(ctx, `DELETE FROM notas WHERE id = ?`, id))
}

func (r *gradesRepo) List(ctx context.Context) ([]domain.Grade, error) {
	return r.list(ctx, gradeSelect+` ORDER BY n.creado_en DESC, n.id DESC`)
}

func (r *gradesRepo) ListByStudent(ctx context.Context, studentID int64) ([]domain.Grade, error) {
	return r.list(ctx, gradeSelect+` WHERE n.estudiante_id = ? ORDER BY n.creado_en DESC, n.id DESC`, studentID)
}

func (r *gradesRepo) list(ctx context.Context, query string, args ...any) ([]domain.Grade, error) {
	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
