package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
)

type auditRepo struct {
	c conn
}

func (r *auditRepo) Append(ctx context.Context, e domain.AuditEntry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	var account sql.NullInt64
	if e.AccountID > 0 {
		account = sql.NullInt64{Int64: e.AccountID, Valid: true}
	}

	_, err := r.c.exec(ctx,
		`INSERT INTO auditoria (usuario_id, accion, ip, fecha) VALUES (?, ?, ?, ?)`,
		account, e.Action, mapStringNull(e.IP), dbTime(at))
	return err
}

func (r *auditRepo) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	rows, err := r.c.query(ctx, `
		SELECT a.id, a.usuario_id, u.nombre, a.accion, a.ip, a.fecha
		FROM auditoria a
		LEFT JOIN usuarios u ON a.usuario_id = u.id
		ORDER BY a.fecha DESC, a.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e       domain.AuditEntry
			account sql.NullInt64
			name    sql.NullString
			ip      sql.NullString
		)
		if err := rows.Scan(&e.ID, &account, &name, &e.Action, &ip, &e.At); err != nil {
			return nil, err
		}
		e.AccountID = account.Int64
		e.ActorName = name.String
		e.IP = ip.String
		e.At = e.At.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
