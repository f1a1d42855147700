package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/launchforge/launchforge-backend/pkg/config"
)

// CORS applies the allowed origin policy. The configured frontend URL is
// always allowed alongside any explicitly configured origins.
func CORS(cfg config.CORSConfig, frontendURL string) func(http.Handler) http.Handler {
	origins := append([]string{}, cfg.AllowedOrigins...)
	if frontendURL != "" {
		origins = append(origins, frontendURL)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
