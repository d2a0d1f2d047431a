package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dtroode/appauth-server/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db *Connection
}

func NewRefreshTokenRepository(db *Connection) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, domain model.Domain, token model.RefreshToken) error {
	query := `
        INSERT INTO ` + refreshTokensTable(domain) + ` (user_id, token_hash, expires_at)
        VALUES ($1, $2, $3)
    `
	_, err := r.db.conn(ctx).ExecContext(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt)
	if err != nil {
		if hasPgCode(err, pgErrUniqueViolation) {
			return model.ErrConflict
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// GetByHash locks the row inside a transaction so concurrent rotations of
// the same token serialize.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, domain model.Domain, tokenHash string) (model.RefreshToken, error) {
	query := `
        SELECT id, user_id, token_hash, expires_at, created_at
        FROM ` + refreshTokensTable(domain) + ` WHERE token_hash = $1
    `
	if _, inTx := ctx.Value(txKey{}).(*sql.Tx); inTx {
		query += ` FOR UPDATE`
	}

	var rt model.RefreshToken
	err := r.db.conn(ctx).QueryRowContext(ctx, query, tokenHash).Scan(
		&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token by hash: %w", err)
	}
	return rt, nil
}

func (r *RefreshTokenRepository) DeleteByHash(ctx context.Context, domain model.Domain, tokenHash string) error {
	res, err := r.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM `+refreshTokensTable(domain)+` WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return rowsAffected(res)
}

func (r *RefreshTokenRepository) DeleteAllByUser(ctx context.Context, domain model.Domain, userID int64) error {
	_, err := r.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM `+refreshTokensTable(domain)+` WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete refresh tokens of user: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteAllByApp(ctx context.Context, appID int64) error {
	const query = `
        DELETE FROM app_user_refresh_tokens
        WHERE user_id IN (SELECT id FROM app_users WHERE app_id = $1)
    `
	if _, err := r.db.conn(ctx).ExecContext(ctx, query, appID); err != nil {
		return fmt.Errorf("failed to delete refresh tokens of application: %w", err)
	}
	return nil
}
