package http

import (
	"net/http"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
)

type StudentsHandler struct {
	StudentService *service.StudentService
}

// ServeHTTP handles GET /api/estudiantes
//
//	@Summary		List students
//	@Description	Returns every student with code, email, grade average and standing.
//	@Tags			Students
//	@Produce		json
//	@Success		200	{array}		gradesdk.StudentSummary
//	@Failure		401	{object}	gradesdk.ErrorResponse
//	@Failure		403	{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/estudiantes [get].
func (h *StudentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	students, err := h.StudentService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(students, toStudentSummary))
}
