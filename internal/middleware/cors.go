package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS оборачивает весь http.Handler, включая preflight-запросы, которые gin не маршрутизирует
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}
	// при "*" браузер не принимает учетные данные
	if len(allowedOrigins) > 0 && allowedOrigins[0] != "*" {
		opts.AllowCredentials = true
	}
	return cors.Handler(opts)
}
