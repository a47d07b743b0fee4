package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/barberbook/internal/auth"
	"github.com/BradenHooton/barberbook/internal/handlers"
	"github.com/BradenHooton/barberbook/internal/metrics"
	"github.com/BradenHooton/barberbook/internal/middleware"
	pkghttp "github.com/BradenHooton/barberbook/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Options configures the router
type Options struct {
	Env            string
	AllowedOrigins []string
	RequestTimeout time.Duration
	APIRateLimit   middleware.RateLimitConfig
	AuthRateLimit  middleware.RateLimitConfig
	// IPConfig lists the proxies trusted for forwarded headers
	IPConfig       *pkghttp.IPConfig
	// Metrics enables request metrics and GET /metrics when set
	Metrics        *metrics.Metrics
}

// Handlers groups everything the router dispatches to
type Handlers struct {
	Auth      *handlers.AuthHandler
	TwoFactor *handlers.TwoFactorHandler
	Health    *handlers.HealthHandler
}

// NewRouter builds the middleware chain and registers all application routes.
// chi's RealIP is not used: client IPs are resolved by
// pkghttp.ExtractClientIP against the trusted proxy list.
func NewRouter(
	opts Options,
	h Handlers,
	verifier auth.AccessTokenVerifier,
	revocations auth.TokenRevocationChecker,
	logger *slog.Logger,
) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: opts.Env, IPConfig: opts.IPConfig}))
	router.Use(middleware.CORS(middleware.DefaultCORSOptions(opts.AllowedOrigins)))
	router.Use(middleware.SecureLogger(logger))
	if opts.Metrics != nil {
		router.Use(middleware.RequestMetrics(opts.Metrics))
	}
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(opts.RequestTimeout))

	router.Get("/health", h.Health.Health)
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(opts.APIRateLimit))
		RegisterRoutes(r, h, verifier, revocations, opts.AuthRateLimit, logger)
	})

	return router
}

// RegisterRoutes registers the /auth routes on router
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	verifier auth.AccessTokenVerifier,
	revocations auth.TokenRevocationChecker,
	authRateLimit middleware.RateLimitConfig,
	logger *slog.Logger,
) {
	authLimiter := middleware.RateLimitByIP(authRateLimit)

	router.Route("/auth", func(r chi.Router) {
		// Public routes. Login is gated by the IP guard inside the handler.
		r.Post("/login", h.Auth.Login)
		r.With(authLimiter).Post("/register", h.Auth.Register)
		r.With(authLimiter).Post("/refresh-token", h.Auth.RefreshToken)
		r.Post("/verify-email", h.Auth.VerifyEmail)

		// Protected routes - authentication required
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(verifier, revocations, logger))

			r.Get("/me", h.Auth.Me)
			r.Post("/logout", h.Auth.Logout)

			r.Post("/2fa/setup", h.TwoFactor.Setup)
			r.Post("/2fa/verify", h.TwoFactor.Verify)
			r.Post("/2fa/disable", h.TwoFactor.Disable)
		})
	})
}
