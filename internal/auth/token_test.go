package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/barberbook/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func newTestTokenManager() *TokenManager {
	return NewTokenManager(testSecret, "barberbook", 15*time.Minute, 7*24*time.Hour)
}

func TestTokenManager_AccessTokenRoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	token, err := tm.GenerateAccessToken("acct-1")
	require.NoError(t, err)

	claims, err := tm.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.UserID)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, "barberbook", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_RefreshTokenRoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	token, err := tm.GenerateRefreshToken("acct-1")
	require.NoError(t, err)

	claims, err := tm.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.UserID)
	assert.Equal(t, models.TokenTypeRefresh, claims.Type)
}

func TestTokenManager_UniqueJTI(t *testing.T) {
	tm := newTestTokenManager()

	pair1, err := tm.GenerateTokenPair("acct-1")
	require.NoError(t, err)
	pair2, err := tm.GenerateTokenPair("acct-1")
	require.NoError(t, err)

	assert.NotEqual(t, pair1.AccessToken, pair2.AccessToken)
	assert.NotEqual(t, pair1.RefreshToken, pair2.RefreshToken)
}

func TestTokenManager_TypeConfusion(t *testing.T) {
	tm := newTestTokenManager()

	access, err := tm.GenerateAccessToken("acct-1")
	require.NoError(t, err)
	refresh, err := tm.GenerateRefreshToken("acct-1")
	require.NoError(t, err)

	_, err = tm.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	_, err = tm.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := newTestTokenManager()
	issued := time.Now().Add(-time.Hour)
	tm.now = func() time.Time { return issued }

	token, err := tm.GenerateAccessToken("acct-1")
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.VerifyAccessToken(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := newTestTokenManager().GenerateAccessToken("acct-1")
	require.NoError(t, err)

	other := NewTokenManager("a-completely-different-secret-of-sufficient-length", "barberbook", time.Minute, time.Hour)
	_, err = other.VerifyAccessToken(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_WrongIssuer(t *testing.T) {
	token, err := newTestTokenManager().GenerateAccessToken("acct-1")
	require.NoError(t, err)

	other := NewTokenManager(testSecret, "someone-else", time.Minute, time.Hour)
	_, err = other.VerifyAccessToken(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_RejectsNoneAndOtherAlgorithms(t *testing.T) {
	tm := newTestTokenManager()
	claims := &models.TokenClaims{
		Type:   models.TokenTypeAccess,
		UserID: "acct-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "barberbook",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.VerifyAccessToken(none)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = tm.VerifyAccessToken(hs512)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_RejectsMissingExpiry(t *testing.T) {
	tm := newTestTokenManager()
	claims := &models.TokenClaims{
		Type:             models.TokenTypeAccess,
		UserID:           "acct-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "barberbook"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.VerifyAccessToken(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_Malformed(t *testing.T) {
	tm := newTestTokenManager()

	for _, token := range []string{"", "abc", "a.b.c", strings.Repeat("x", 500)} {
		_, err := tm.VerifyAccessToken(token)
		assert.ErrorIs(t, err, models.ErrInvalidToken, token)
	}
}

func TestTokenManager_TamperedPayload(t *testing.T) {
	tm := newTestTokenManager()
	token, err := tm.GenerateAccessToken("acct-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.TokenClaims{
		Type:   models.TokenTypeAccess,
		UserID: "acct-2",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "barberbook",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("attacker"))
	require.NoError(t, err)
	forgedParts := strings.Split(forged, ".")

	_, err = tm.VerifyAccessToken(parts[0] + "." + forgedParts[1] + "." + parts[2])
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_EmptyAccountID(t *testing.T) {
	_, err := newTestTokenManager().GenerateAccessToken("")
	assert.Error(t, err)
}
