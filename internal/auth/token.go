package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/barberbook/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and verifies HS256 access and refresh tokens signed
// with a single service-wide secret.
type TokenManager struct {
	secret             []byte
	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret, issuer string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             []byte(secret),
		issuer:             issuer,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		now:                time.Now,
	}
}

// AccessTokenExpiry returns the lifetime of issued access tokens
func (tm *TokenManager) AccessTokenExpiry() time.Duration {
	return tm.accessTokenExpiry
}

// GenerateAccessToken creates a short-lived access token for accountID
func (tm *TokenManager) GenerateAccessToken(accountID string) (string, error) {
	return tm.generate(accountID, models.TokenTypeAccess, tm.accessTokenExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token for accountID
func (tm *TokenManager) GenerateRefreshToken(accountID string) (string, error) {
	return tm.generate(accountID, models.TokenTypeRefresh, tm.refreshTokenExpiry)
}

// GenerateTokenPair issues a fresh access and refresh token
func (tm *TokenManager) GenerateTokenPair(accountID string) (*models.TokenPair, error) {
	access, err := tm.GenerateAccessToken(accountID)
	if err != nil {
		return nil, err
	}
	refresh, err := tm.GenerateRefreshToken(accountID)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (tm *TokenManager) generate(accountID, tokenType string, expiry time.Duration) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("cannot issue %s token without account id", tokenType)
	}

	now := tm.now()
	claims := &models.TokenClaims{
		Type:   tokenType,
		UserID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// VerifyAccessToken returns the claims of a valid access token
func (tm *TokenManager) VerifyAccessToken(tokenString string) (*models.TokenClaims, error) {
	return tm.verify(tokenString, models.TokenTypeAccess)
}

// VerifyRefreshToken returns the claims of a valid refresh token
func (tm *TokenManager) VerifyRefreshToken(tokenString string) (*models.TokenClaims, error) {
	return tm.verify(tokenString, models.TokenTypeRefresh)
}

// verify collapses every failure (signature, expiry, algorithm, type) into
// models.ErrInvalidToken so callers cannot leak which check failed.
func (tm *TokenManager) verify(tokenString, wantType string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(models.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Type != wantType || claims.UserID == "" {
		return nil, models.ErrInvalidToken
	}

	return claims, nil
}
