package http

import (
	"net/http"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/gate"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
)

// GradesHandler serves /notas.
type GradesHandler struct {
	GradeService *service.GradeService
}

// HandleList handles GET /notas
//
//	@Summary		List all grades
//	@Description	Returns every grade with student and author names, newest first.
//	@Tags			Grades
//	@Produce		json
//	@Success		200	{array}		gradesdk.Grade
//	@Failure		401	{object}	gradesdk.ErrorResponse
//	@Failure		403	{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/notas [get].
func (h *GradesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	grades, err := h.GradeService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(grades, toGrade))
}

// HandleMine handles GET /notas/mias
//
//	@Summary		List my grades
//	@Description	Returns the calling student's grades, newest first.
//	@Tags			Grades
//	@Produce		json
//	@Success		200	{array}		gradesdk.Grade
//	@Failure		401	{object}	gradesdk.ErrorResponse
//	@Failure		403	{object}	gradesdk.ErrorResponse
//	@Failure		404	{object}	gradesdk.ErrorResponse	"no student record"
//	@Security		BearerAuth
//	@Router			/notas/mias [get].
func (h *GradesHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "authentication required")
		return
	}

	grades, err := h.GradeService.ListMine(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(grades, toGrade))
}

// HandleCreate handles POST /notas
//
//	@Summary		Record a grade
//	@Tags			Grades
//	@Accept			json
//	@Produce		json
//	@Param			request	body		gradesdk.GradeRequest	true	"Grade"
//	@Success		201		{object}	gradesdk.Grade
//	@Failure		400		{object}	gradesdk.ValidationErrorResponse	"calificacion outside 0..5"
//	@Failure		401		{object}	gradesdk.ErrorResponse
//	@Failure		403		{object}	gradesdk.ErrorResponse
//	@Failure		404		{object}	gradesdk.ErrorResponse	"student not found"
//	@Security		BearerAuth
//	@Router			/notas [post].
func (h *GradesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, "authentication required")
		return
	}

	var req gradesdk.GradeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, r, err)
		return
	}

	in, err := toGradeInput(req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	grade, err := h.GradeService.Create(r.Context(), p, in, httpx.ClientIP(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toGrade(grade))
}

// HandleUpdate handles PUT /notas/{id}
//
//	@Summary		Update a grade
//	@Description	Replaces subject, score and period. The student cannot be changed.
//	@Tags			Grades
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Grade ID"
//	@Param			request	body		gradesdk.GradeRequest	true	"Grade"
//	@Success		200		{object}	gradesdk.Grade
//	@Failure		400		{object}	gradesdk.ValidationErrorResponse
//	@Failure		401		{object}	gradesdk.ErrorResponse
//	@Failure		403		{object}	gradesdk.ErrorResponse
//	@Failure		404		{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/notas/{id} [put].
func (h *GradesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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

	var req gradesdk.GradeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, r, err)
		return
	}

	in, err := toGradeInput(req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	grade, err := h.GradeService.Update(r.Context(), p, id, in, httpx.ClientIP(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toGrade(grade))
}

// HandleDelete handles DELETE /notas/{id}
//
//	@Summary		Delete a grade
//	@Tags			Grades
//	@Produce		json
//	@Param			id	path		int	true	"Grade ID"
//	@Success		200	{object}	gradesdk.MessageResponse
//	@Failure		401	{object}	gradesdk.ErrorResponse
//	@Failure		403	{object}	gradesdk.ErrorResponse
//	@Failure		404	{object}	gradesdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/notas/{id} [delete].
func (h *GradesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.GradeService.Delete(r.Context(), p, id, httpx.ClientIP(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gradesdk.MessageResponse{Message: "Nota eliminada correctamente"})
}
