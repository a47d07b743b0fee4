package middleware

import (
	"net/http"

	pkghttp "github.com/BradenHooton/barberbook/pkg/http"
)

// SecurityHeadersConfig holds security headers configuration. IPConfig
// decides whose X-Forwarded-Proto is believed; nil trusts none.
type SecurityHeadersConfig struct {
	Env      string
	IPConfig *pkghttp.IPConfig
}

// SecurityHeaders returns a middleware that adds security headers to all
// responses. The API only ever returns JSON, so the CSP forbids everything.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			h.Set("X-DNS-Prefetch-Control", "off")

			// Tokens and profiles must never be cached
			h.Set("Cache-Control", "no-store")

			// HSTS only over HTTPS in production
			if config.Env == "production" && pkghttp.IsSecureRequest(r, config.IPConfig) {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
