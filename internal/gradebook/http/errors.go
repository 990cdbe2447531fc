package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"
)

// writeServiceError maps the domain error taxonomy onto HTTP responses.
// Unexpected errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var valErr *domain.ValidationError
	switch {
	case errors.As(err, &valErr):
		httpx.WriteJSON(w, http.StatusBadRequest, gradesdk.ValidationErrorResponse{
			Code:    gradesdk.ErrorCodeValidation,
			Message: valErr.Error(),
			Details: valErr.Fields,
		})

	case errors.Is(err, service.ErrMFARequired):
		httpx.WriteError(w, http.StatusUnauthorized, gradesdk.ErrorCodeMFARequired, "a one-time code is required")
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidOTP):
		httpx.WriteError(w, http.StatusUnauthorized, gradesdk.ErrorCodeInvalidCredential, "Credenciales incorrectas")
	case errors.Is(err, domain.ErrUnauthenticated):
		httpx.WriteBearerError(w, "authentication required")

	case errors.Is(err, domain.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, gradesdk.ErrorCodeForbidden, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, gradesdk.ErrorCodeValidation, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, gradesdk.ErrorCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, gradesdk.ErrorCodeConflict, err.Error())

	case errors.Is(err, domain.ErrDependency):
		log.Error("dependency failure", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, gradesdk.ErrorCodeDependency, "try again later")
	default:
		log.Error("unhandled error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, gradesdk.ErrorCodeServerError, "internal server error")
	}
}

// writeBadJSON reports an unreadable request body.
func writeBadJSON(w http.ResponseWriter, r *http.Request, err error) {
	slogx.FromContext(r.Context()).Debug("bad request body", "err", err)
	httpx.WriteError(w, http.StatusBadRequest, gradesdk.ErrorCodeInvalidRequest, "invalid JSON body")
}

// pathID parses the {id} wildcard as a positive integer.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}
