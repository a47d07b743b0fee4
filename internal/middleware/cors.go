package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// DefaultCORSOptions returns the policy for the booking frontend. Origins must
// be filled in from configuration; with none configured every cross-origin
// request is refused.
func DefaultCORSOptions(allowedOrigins []string) cors.Options {
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			origins = append(origins, origin)
		}
	}

	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           3600,
	}
	// go-chi/cors treats an empty origin list as "*"
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return opts
}

// CORS returns the go-chi/cors handler for opts
func CORS(opts cors.Options) func(http.Handler) http.Handler {
	return cors.Handler(opts)
}
