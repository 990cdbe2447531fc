package store

import (
	"context"
	"time"
)

// DenylistAdapter adapts RevokedTokens to the jwtx.Denylist interface so the
// gate can consult the database without depending on the store package.
type DenylistAdapter struct {
	store Store
	now   func() time.Time
}

// NewDenylistAdapter creates a jwtx.Denylist backed by the store.
func NewDenylistAdapter(s Store) *DenylistAdapter {
	return &DenylistAdapter{store: s, now: time.Now}
}

func (a *DenylistAdapter) Revoke(ctx context.Context, jti string, until time.Time) error {
	return a.store.RevokedTokens().Add(ctx, jti, until)
}

func (a *DenylistAdapter) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return a.store.RevokedTokens().Exists(ctx, jti, a.now())
}
