package sqlstore

import (
	"context"
	"time"
)

type revokedTokensRepo struct {
	c conn
}

func (r *revokedTokensRepo) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	// Round up so the row never expires before the token does.
	until := dbTime(expiresAt.Add(time.Second - time.Nanosecond))
	_, err := r.c.exec(ctx,
		`INSERT INTO tokens_revocados (jti, expira_en) VALUES (?, ?) ON CONFLICT (jti) DO NOTHING`,
		jti, until)
	return err
}

func (r *revokedTokensRepo) Exists(ctx context.Context, jti string, now time.Time) (bool, error) {
	var n int
	err := r.c.queryRow(ctx,
		`SELECT COUNT(*) FROM tokens_revocados WHERE jti = ? AND expira_en > ?`,
		jti, dbTime(now)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *revokedTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.c.exec(ctx, `DELETE FROM tokens_revocados WHERE expira_en <= ?`, dbTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
