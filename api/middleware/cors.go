package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/topsevenstore/checkout-api/pkg/config"
)

// CORS applies the storefront origin policy from configuration.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.Origins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", SessionIDHeader, "X-Requested-With"},
		ExposedHeaders:   []string{SessionIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
