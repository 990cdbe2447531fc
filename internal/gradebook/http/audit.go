package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
)

const maxAuditLimit = 5000

type AuditHandler struct {
	AuditService *service.AuditService
}

// ServeHTTP handles GET /auditoria
//
//	@Summary		Audit log
//	@Description	Returns recorded actions, newest first.
//	@Tags			Audit
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum entries (default 500)"
//	@Success		200		{array}		gradesdk.AuditEntry
//	@Failure		400		{object}	gradesdk.ValidationErrorResponse
//	@Failure		401		{object}	gradesdk.ErrorResponse
//	@Failure		403		{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/auditoria [get].
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditLimit {
			writeServiceError(w, r, domain.NewValidationError("limit", "must be between 1 and 5000"))
			return
		}
		limit = n
	}

	entries, err := h.AuditService.List(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(entries, toAuditEntry))
}
