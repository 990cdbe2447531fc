package gradesdk

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// refreshBuffer is how long before expiry a session refreshes its token.
const refreshBuffer = 30 * time.Second

// Session is an authenticated client. Tokens are refreshed automatically
// shortly before they expire.
type Session struct {
	client *Client

	mu        sync.RWMutex
	token     string
	user      PublicUser
	expiresAt time.Time
}

func newSession(client *Client, user PublicUser, token string, expiresIn int) *Session {
	return &Session{
		client:    client,
		token:     token,
		user:      user,
		expiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second),
	}
}

// User returns the account the session was opened for.
func (s *Session) User() PublicUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// getValidToken returns the access token, refreshing it first when it is
// about to expire.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	token, expiresAt := s.token, s.expiresAt
	s.mu.RUnlock()

	if time.Until(expiresAt) > refreshBuffer {
		return token, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return "", err
	}
	return s.AccessToken(), nil
}

// do performs an authenticated request and decodes the response.
func (s *Session) do(ctx context.Context, method, path string, body, target any, expectedStatus int) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.client.doRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, expectedStatus)
}

// Refresh exchanges the current token for a new one. The old token is
// revoked by the server.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	resp, err := s.client.doRequest(ctx, http.MethodPost, "/api/auth/refresh", token, nil)
	if err != nil {
		return err
	}

	var out RefreshResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = out.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	s.mu.Unlock()
	return nil
}

// Logout revokes the session's token.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	resp, err := s.client.doRequest(ctx, http.MethodPost, "/api/auth/logout", token, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// Me returns the caller as described by its token.
func (s *Session) Me(ctx context.Context) (*PublicUser, error) {
	var user PublicUser
	if err := s.do(ctx, http.MethodGet, "/api/auth/me", nil, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetupMFA generates a TOTP secret. MFA stays off until EnableMFA.
func (s *Session) SetupMFA(ctx context.Context) (*MFASetupResponse, error) {
	var out MFASetupResponse
	if err := s.do(ctx, http.MethodPost, "/api/auth/mfa/setup", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnableMFA confirms the pending secret with a current code.
func (s *Session) EnableMFA(ctx context.Context, code string) error {
	return s.do(ctx, http.MethodPost, "/api/auth/mfa/enable", MFACodeRequest{Code: code}, nil, http.StatusOK)
}

// DisableMFA turns MFA off with a current code.
func (s *Session) DisableMFA(ctx context.Context, code string) error {
	return s.do(ctx, http.MethodPost, "/api/auth/mfa/disable", MFACodeRequest{Code: code}, nil, http.StatusOK)
}
