package http

import (
	"net/http"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/gate"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
)

// UsersHandler is the admin view of accounts.
type UsersHandler struct {
	AccountService *service.AccountService
}

// HandleList handles GET /usuarios
//
//	@Summary		List accounts
//	@Tags			Users
//	@Produce		json
//	@Success		200	{array}		gradesdk.Account
//	@Failure		401	{object}	gradesdk.ErrorResponse
//	@Failure		403	{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/usuarios [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	accs, err := h.AccountService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(accs, toAccount))
}

// HandleGet handles GET /usuarios/{id}
//
//	@Summary		Get an account
//	@Tags			Users
//	@Produce		json
//	@Param			id	path		int	true	"Account ID"
//	@Success		200	{object}	gradesdk.Account
//	@Failure		401	{object}	gradesdk.ErrorResponse
//	@Failure		403	{object}	gradesdk.ErrorResponse
//	@Failure		404	{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/usuarios/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	acc, err := h.AccountService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAccount(acc))
}

// HandleDelete handles DELETE /usuarios/{id}
//
//	@Summary		Delete an account
//	@Description	Deletes the account with its student record and grades. Admins cannot delete themselves.
//	@Tags			Users
//	@Produce		json
//	@Param			id	path		int	true	"Account ID"
//	@Success		200	{object}	gradesdk.MessageResponse
//	@Failure		400	{object}	gradesdk.ValidationErrorResponse	"own account"
//	@Failure		401	{object}	gradesdk.ErrorResponse
//	@Failure		403	{object}	gradesdk.ErrorResponse
//	@Failure		404	{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/usuarios/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "authentication required")
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.AccountService.Delete(r.Context(), p, id, httpx.ClientIP(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gradesdk.MessageResponse{Message: "Usuario eliminado correctamente"})
}
