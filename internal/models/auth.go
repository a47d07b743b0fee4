package models

import "github.com/golang-jwt/jwt/v5"

// Token types carried in the "type" claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims are the JWT claims issued for an account. UserID is the only
// claim of interest to callers.
type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenPair is an access token with its companion refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         *PublicProfile `json:"user"`
}
