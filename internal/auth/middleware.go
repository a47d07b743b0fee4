package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/barberbook/internal/models"
	pkghttp "github.com/BradenHooton/barberbook/pkg/http"
)

type contextKey string

const (
	// UserContextKey holds the verified access token claims
	UserContextKey contextKey = "user"
)

// AccessTokenVerifier verifies bearer access tokens
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*models.TokenClaims, error)
}

// TokenRevocationChecker reports whether a token id has been revoked by logout
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware requires a valid, unrevoked access token. Refresh tokens are
// rejected by the verifier. A failing revocation lookup denies access.
func AuthMiddleware(verifier AccessTokenVerifier, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "Not authorized, no token")
				return
			}

			claims, err := verifier.VerifyAccessToken(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Not authorized, token failed")
				return
			}

			if revocationChecker != nil && claims.ID != "" {
				revoked, err := revocationChecker.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					logger.Error("token revocation check failed", slog.String("error", err.Error()))
					pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Unable to verify token status")
					return
				}
				if revoked {
					pkghttp.WriteUnauthorized(w, "Not authorized, token revoked")
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
