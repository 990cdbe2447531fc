package gradesdk

import (
	"context"
	"net/http"
	"strconv"
)

// Register creates an account as the session's principal. With
// admin-only registration the session must belong to an admin.
func (s *Session) Register(ctx context.Context, req RegisterRequest) (*PublicUser, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.register(ctx, token, req)
}

// ListUsers returns every account. Requires admin.
func (s *Session) ListUsers(ctx context.Context) ([]Account, error) {
	var out []Account
	if err := s.do(ctx, http.MethodGet, "/usuarios", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser returns one account. Requires admin.
func (s *Session) GetUser(ctx context.Context, id int64) (*Account, error) {
	var out Account
	if err := s.do(ctx, http.MethodGet, "/usuarios/"+strconv.FormatInt(id, 10), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes an account and everything it owns. Requires admin.
func (s *Session) DeleteUser(ctx context.Context, id int64) error {
	return s.do(ctx, http.MethodDelete, "/usuarios/"+strconv.FormatInt(id, 10), nil, nil, http.StatusOK)
}

// ListAudit returns the audit log, newest first. Requires admin.
func (s *Session) ListAudit(ctx context.Context) ([]AuditEntry, error) {
	var out []AuditEntry
	if err := s.do(ctx, http.MethodGet, "/auditoria", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}
