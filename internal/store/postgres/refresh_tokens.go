package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-sso-server/token/refresh"
)

var _ refresh.Repo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenRepo(pool *pgxpool.Pool) *RefreshTokenRepo {
	return &RefreshTokenRepo{pool: pool}
}

const insertRefreshToken = `
INSERT INTO refresh_tokens
    (id, user_id, token_hash, client_id, chain_id, previous_token_id, created_at, expires_at, revoked, ip, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (r *RefreshTokenRepo) Insert(ctx context.Context, rec *refresh.Record) error {
	_, err := r.pool.Exec(ctx, insertRefreshToken, refreshArgs(rec)...)
	if err != nil {
		return fmt.Errorf("[RefreshTokenRepo.Insert] %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*refresh.Record, error) {
	const q = `
SELECT id, user_id, token_hash, COALESCE(client_id, ''), chain_id, COALESCE(previous_token_id, ''),
       created_at, expires_at, revoked, COALESCE(ip, ''), COALESCE(user_agent, '')
FROM refresh_tokens
WHERE token_hash = $1`

	var rec refresh.Record
	err := r.pool.QueryRow(ctx, q, tokenHash).Scan(
		&rec.ID, &rec.UserID, &rec.TokenHash, &rec.ClientID, &rec.ChainID, &rec.PreviousTokenID,
		&rec.CreatedAt, &rec.ExpiresAt, &rec.Revoked, &rec.IP, &rec.UserAgent,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// Rotate revokes currentID and inserts next in one transaction. The revoke is
// conditional on the row still being live, so of two concurrent rotations of
// the same token only one commits.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, currentID string, next *refresh.Record) (bool, error) {
	rotated := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND revoked = false`, currentID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, insertRefreshToken, refreshArgs(next)...); err != nil {
			return err
		}
		rotated = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("[RefreshTokenRepo.Rotate] %w", err)
	}
	return rotated, nil
}

func (r *RefreshTokenRepo) Revoke(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE id = $1`, id); err != nil {
		return fmt.Errorf("[RefreshTokenRepo.Revoke] %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) RevokeChain(ctx context.Context, chainID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE chain_id = $1 AND revoked = false`, chainID)
	if err != nil {
		return 0, fmt.Errorf("[RefreshTokenRepo.RevokeChain] %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`, userID)
	if err != nil {
		return 0, fmt.Errorf("[RefreshTokenRepo.RevokeAllForUser] %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredBefore removes tokens that expired before cutoff. Revoked
// tokens are kept until then so reuse of a rotated token is still detected.
func (r *RefreshTokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("[RefreshTokenRepo.DeleteExpiredBefore] %w", err)
	}
	return tag.RowsAffected(), nil
}

func refreshArgs(rec *refresh.Record) []any {
	return []any{
		rec.ID, rec.UserID, rec.TokenHash, nullable(rec.ClientID), rec.ChainID, nullable(rec.PreviousTokenID),
		rec.CreatedAt, rec.ExpiresAt, rec.Revoked, nullable(rec.IP), nullable(rec.UserAgent),
	}
}
