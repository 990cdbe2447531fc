package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gradebook/pkg/gradesdk"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
)

// ServiceName is reported by GET /health.
const ServiceName = "sistema-notas"

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness probe endpoint returning basic service health status, uptime, and version information
//	@Description	This endpoint always returns 200 OK if the service is running
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	gradesdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := gradesdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}
		httpx.WriteJSON(w, http.StatusOK, response)
	}
}

// HealthHandler godoc
//
//	@Summary		Service status
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	gradesdk.ServiceStatus
//	@Router			/health [get].
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, gradesdk.ServiceStatus{
			Status:  "healthy",
			Service: ServiceName,
		})
	}
}

// RootHandler godoc
//
//	@Summary		Banner
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	gradesdk.MessageResponse
//	@Router			/ [get].
func RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, gradesdk.MessageResponse{
			Message: "Sistema de Notas Seguro - API funcionando correctamente",
		})
	}
}
