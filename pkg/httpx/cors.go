package httpx

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows credentialed cross-origin requests from the given origins.
// An origin may contain one "*" wildcard, e.g. "http://localhost:*".
func CORS(origins []string) Middleware {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         600,
	})
	return c.Handler
}
