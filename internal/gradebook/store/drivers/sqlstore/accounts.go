package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
)

const accountColumns = `id, email, password_hash, rol, nombre, mfa_secret, mfa_habilitado_en, creado_en`

type accountsRepo struct {
	c conn
}

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var (
		a         domain.Account
		role      string
		secret    []byte
		enabledAt sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &a.Name, &secret, &enabledAt, &a.CreatedAt); err != nil {
		return domain.Account{}, err
	}
	a.Role = domain.Role(role)
	if len(secret) > 0 {
		a.MFASecret = secret
	}
	a.MFAEnabledAt = mapNullTimePtr(enabledAt)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (r *accountsRepo) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	row := r.c.queryRow(ctx, `SELECT `+accountColumns+` FROM usuarios WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.c.queryRow(ctx, `SELECT `+accountColumns+` FROM usuarios WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.c.query(ctx, `SELECT `+accountColumns+` FROM usuarios ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) (int64, error) {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := r.c.queryRow(ctx,
		`INSERT INTO usuarios (email, password_hash, rol, nombre, creado_en)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		a.Email, a.PasswordHash, string(a.Role), a.Name, dbTime(createdAt),
	).Scan(&id)
	if err != nil {
		return 0, r.c.mapWriteErr(err)
	}
	return id, nil
}

func (r *accountsRepo) Delete(ctx context.Context, id int64) error {
	return requireAffected(r.c.exec(ctx, `DELETE FROM usuarios WHERE id = ?`, id))
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return requireAffected(r.c.exec(ctx, `UPDATE usuarios SET password_hash = ? WHERE id = ?`, hash, id))
}

func (r *accountsRepo) UpdateMFASecret(ctx context.Context, id int64, sealed []byte) error {
	return requireAffected(r.c.exec(ctx,
		`UPDATE usuarios SET mfa_secret = ?, mfa_habilitado_en = NULL WHERE id = ?`, sealed, id))
}

func (r *accountsRepo) EnableMFA(ctx context.Context, id int64, at time.Time) error {
	return requireAffected(r.c.exec(ctx,
		`UPDATE usuarios SET mfa_habilitado_en = ? WHERE id = ? AND mfa_secret IS NOT NULL`, dbTime(at), id))
}

func (r *accountsRepo) DisableMFA(ctx context.Context, id int64) error {
	return requireAffected(r.c.exec(ctx,
		`UPDATE usuarios SET mfa_secret = NULL, mfa_habilitado_en = NULL WHERE id = ?`, id))
}

func (r *accountsRepo) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var n int
	err := r.c.queryRow(ctx, `SELECT COUNT(*) FROM usuarios WHERE rol = ?`, string(role)).Scan(&n)
	return n, err
}
