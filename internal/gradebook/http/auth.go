package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/gate"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"
)

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	AuthService  *service.AuthService
	Gate         *gate.Gate
	Transport    httpx.Transport
	CookieSecure bool
}

// deliver hands a fresh token to the client according to the transport.
func (h *AuthHandler) deliver(w http.ResponseWriter, token string, ttl time.Duration) (body string, expiresIn int) {
	if h.Transport.UsesCookie() {
		httpx.SetTokenCookie(w, token, ttl, h.CookieSecure)
	}
	if h.Transport.UsesBody() {
		body = token
	}
	return body, int(ttl.Seconds())
}

func tokenType(token string) string {
	if token == "" {
		return ""
	}
	return "bearer"
}

// HandleLogin handles POST /api/auth/login
//
//	@Summary		Log in
//	@Description	Verifies email and password (and a TOTP code when MFA is enabled) and issues a session token.
//	@Description	The token is set as an HttpOnly cookie and/or returned in the body depending on the server's token transport.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		gradesdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	gradesdk.LoginResponse
//	@Failure		400		{object}	gradesdk.ValidationErrorResponse
//	@Failure		401		{object}	gradesdk.ErrorResponse	"invalid_credentials or mfa_required"
//	@Failure		429		{object}	gradesdk.ErrorResponse
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req gradesdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, r, err)
		return
	}

	sess, err := h.AuthService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
		IP:       httpx.ClientIP(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, expiresIn := h.deliver(w, sess.Token, sess.TTL)
	httpx.WriteJSON(w, http.StatusOK, gradesdk.LoginResponse{
		Message:     "Login exitoso",
		User:        toPublicUser(sess.Account),
		AccessToken: token,
		TokenType:   tokenType(token),
		ExpiresIn:   expiresIn,
	})
}

// HandleRegister handles POST /api/auth/register
//
//	@Summary		Register an account
//	@Description	Creates an account. Estudiante accounts also get a student record with code ESTnnn.
//	@Description	When registration is admin-only the caller must present an admin token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		gradesdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	gradesdk.PublicUser
//	@Failure		400		{object}	gradesdk.ValidationErrorResponse
//	@Failure		401		{object}	gradesdk.ErrorResponse
//	@Failure		403		{object}	gradesdk.ErrorResponse
//	@Failure		409		{object}	gradesdk.ErrorResponse	"email already registered"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	actor, err := h.optionalPrincipal(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req gradesdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, r, err)
		return
	}

	acc, err := h.AuthService.Register(r.Context(), actor, service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Rol,
		Name:     req.Nombre,
		IP:       httpx.ClientIP(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toPublicUser(acc))
}

// optionalPrincipal authenticates the request when it carries a token. An
// invalid token counts as anonymous; only denylist failures are errors.
func (h *AuthHandler) optionalPrincipal(r *http.Request) (*domain.Principal, error) {
	if h.Gate.Extractor(r) == "" {
		return nil, nil
	}
	p, err := h.Gate.Authenticate(r)
	if errors.Is(err, domain.ErrDependency) {
		return nil, err
	}
	if err != nil {
		slogx.FromContext(r.Context()).Debug("ignoring invalid token", "err", err)
		return nil, nil
	}
	return &p, nil
}

// HandleRefresh handles POST /api/auth/refresh
//
//	@Summary		Refresh the session token
//	@Description	Issues a new token with the account's current role and name and revokes the presented one.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	gradesdk.RefreshResponse
//	@Failure		401	{object}	gradesdk.ErrorResponse
//	@Failure		503	{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "authentication required")
		return
	}

	sess, err := h.AuthService.Refresh(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, expiresIn := h.deliver(w, sess.Token, sess.TTL)
	httpx.WriteJSON(w, http.StatusOK, gradesdk.RefreshResponse{
		AccessTokenRefreshed: true,
		AccessToken:          token,
		TokenType:            tokenType(token),
		ExpiresIn:            expiresIn,
	})
}

// HandleMe handles GET /api/auth/me
//
//	@Summary		Current user
//	@Description	Returns the caller as described by its token.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	gradesdk.PublicUser
//	@Failure		401	{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "authentication required")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPublicUser(h.AuthService.Me(p)))
}

// HandleLogout handles POST /api/auth/logout
//
//	@Summary		Log out
//	@Description	Clears the session cookie and revokes the presented token, if any.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	gradesdk.MessageResponse
//	@Failure		503	{object}	gradesdk.ErrorResponse	"token could not be revoked"
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if h.Transport.UsesCookie() {
		httpx.ClearTokenCookie(w, h.CookieSecure)
	}

	p, err := h.optionalPrincipal(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if p != nil {
		if err := h.AuthService.Logout(r.Context(), *p, httpx.ClientIP(r)); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	httpx.WriteJSON(w, http.StatusOK, gradesdk.MessageResponse{Message: "Sesión cerrada"})
}
