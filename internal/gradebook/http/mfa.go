package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/gate"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
)

// MFAHandler handles TOTP enrolment for the caller's own account.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleSetup handles POST /api/auth/mfa/setup
//
//	@Summary		Start TOTP enrolment
//	@Description	Generates a TOTP secret for the caller. MFA stays off until the secret is confirmed with /api/auth/mfa/enable.
//	@Tags			MFA
//	@Produce		json
//	@Success		200	{object}	gradesdk.MFASetupResponse
//	@Failure		401	{object}	gradesdk.ErrorResponse
//	@Failure		409	{object}	gradesdk.ErrorResponse	"MFA already enabled"
//	@Security		BearerAuth
//	@Router			/api/auth/mfa/setup [post].
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "authentication required")
		return
	}

	setup, err := h.MFAService.Setup(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, gradesdk.MFASetupResponse{
		Secret:     setup.Secret,
		OTPAuthURL: setup.URL,
		Issuer:     setup.Issuer,
		Account:    setup.Account,
	})
}

// HandleEnable handles POST /api/auth/mfa/enable
//
//	@Summary		Enable MFA
//	@Description	Confirms the pending TOTP secret with a current code. Later logins require a code.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		gradesdk.MFACodeRequest	true	"TOTP code"
//	@Success		200		{object}	gradesdk.MessageResponse
//	@Failure		400		{object}	gradesdk.ValidationErrorResponse
//	@Failure		401		{object}	gradesdk.ErrorResponse
//	@Failure		409		{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/auth/mfa/enable [post].
func (h *MFAHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.handleCode(w, r, h.MFAService.Enable, "MFA habilitado")
}

// HandleDisable handles POST /api/auth/mfa/disable
//
//	@Summary		Disable MFA
//	@Description	Turns MFA off. A current TOTP code is required.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		gradesdk.MFACodeRequest	true	"TOTP code"
//	@Success		200		{object}	gradesdk.MessageResponse
//	@Failure		400		{object}	gradesdk.ValidationErrorResponse
//	@Failure		401		{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/auth/mfa/disable [post].
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.handleCode(w, r, h.MFAService.Disable, "MFA deshabilitado")
}

func (h *MFAHandler) handleCode(
	w http.ResponseWriter,
	r *http.Request,
	action func(context.Context, domain.Principal, string, string) error,
	message string,
) {
	p, ok := gate.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "authentication required")
		return
	}

	var req gradesdk.MFACodeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, r, err)
		return
	}

	if err := action(r.Context(), p, req.Code, httpx.ClientIP(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, gradesdk.MessageResponse{Message: message})
}
