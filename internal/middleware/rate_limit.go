package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/barberbook/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds a request budget per client over a window
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultAPIRateLimit returns the global budget: 100 requests per 15 minutes
func DefaultAPIRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests: 100,
		Window:   15 * time.Minute,
	}
}

// DefaultAuthRateLimit returns the budget for credential endpoints: 5 requests per 15 minutes
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests: 5,
		Window:   15 * time.Minute,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by the
// connection's remote address. Forwarding headers are not consulted.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests, please try again later")
		}),
	)
}
