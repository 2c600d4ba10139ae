package repository

import (
	"context"
	"database/sql"
	"time"

	"anjoman/internal/database"
)

// TokenRepository persists refresh tokens as hashes. Rotation revokes the
// presented token and inserts the replacement in one transaction.
type TokenRepository struct {
	db *database.DB
}

func NewTokenRepository(db *database.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Store(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	query := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, userID, tokenHash, expiresAt)
	return err
}

// Validate returns the owning user id for an active, unexpired token hash.
func (r *TokenRepository) Validate(ctx context.Context, tokenHash string) (int64, bool, error) {
	var (
		userID    int64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	query := `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = $1`

	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, false, nil
	}

	return userID, true, nil
}

// Rotate atomically revokes the old token and stores its replacement.
func (r *TokenRepository) Rotate(ctx context.Context, oldHash string, userID int64, newHash string, expiresAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	revoke := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE token_hash = $1 AND revoked_at IS NULL`
	if _, err := tx.ExecContext(ctx, revoke, oldHash); err != nil {
		return err
	}

	insert := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insert, userID, newHash, expiresAt); err != nil {
		return err
	}

	return tx.Commit()
}

// RevokeAllForUser revokes every active token a user holds.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	query := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
