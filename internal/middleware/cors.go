package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the listed browser origins to call the API with the session
// cookie. Each origin is scheme + host with no trailing slash.
//
// Example:
//
//	r.Use(middleware.CORS([]string{"http://localhost:5173"}))
//
// Credentials are allowed, so a wildcard origin would be rejected by
// browsers. Only GET, POST and DELETE are exposed, plus the preflight.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
	})
	return c.Handler
}
