package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/barberbook/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenRevocationRepository stores the ids of access tokens revoked by logout
// until they would have expired anyway.
type TokenRevocationRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRevocationRepository(db *database.DB) *TokenRevocationRepository {
	return &TokenRevocationRepository{pool: db.Pool}
}

// RevokeToken adds a token id to the revocation list. Revoking twice is a no-op.
func (r *TokenRevocationRepository) RevokeToken(ctx context.Context, jti, accountID string, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_tokens (jti, account_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, jti, accountID, expiresAt); err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// IsTokenRevoked checks if a token is in the revocation list
func (r *TokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, jti).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

// CleanupExpiredTokens removes entries whose tokens have expired
func (r *TokenRevocationRepository) CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
