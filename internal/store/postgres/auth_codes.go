package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-sso-server/authcodes"
)

var _ authcodes.Repo = (*AuthCodeRepo)(nil)

type AuthCodeRepo struct {
	pool *pgxpool.Pool
}

func NewAuthCodeRepo(pool *pgxpool.Pool) *AuthCodeRepo {
	return &AuthCodeRepo{pool: pool}
}

func (r *AuthCodeRepo) Insert(ctx context.Context, c *authcodes.Code) error {
	const q = `
INSERT INTO authorization_codes (id, code, user_id, tenant_id, app_id, redirect_uri, used, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, q, c.ID, c.Code, c.UserID, c.TenantID, c.AppID, c.RedirectURI, c.Used, c.ExpiresAt, c.CreatedAt)
	return wrapExec("AuthCodeRepo.Insert", err)
}

func (r *AuthCodeRepo) GetByCode(ctx context.Context, code string) (*authcodes.Code, error) {
	const q = `
SELECT id, code, user_id, tenant_id, app_id, redirect_uri, used, expires_at, created_at
FROM authorization_codes
WHERE code = $1`
	var c authcodes.Code
	err := r.pool.QueryRow(ctx, q, code).Scan(
		&c.ID, &c.Code, &c.UserID, &c.TenantID, &c.AppID, &c.RedirectURI, &c.Used, &c.ExpiresAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// MarkUsed flips used only while it is still false; the affected row count
// tells the caller whether it won.
func (r *AuthCodeRepo) MarkUsed(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE authorization_codes SET used = true WHERE id = $1 AND used = false`, id)
	if err != nil {
		return false, fmt.Errorf("[AuthCodeRepo.MarkUsed] %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AuthCodeRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM authorization_codes WHERE id = $1`, id)
	return wrapExec("AuthCodeRepo.Delete", err)
}

func (r *AuthCodeRepo) DeleteExpiredOrUsed(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM authorization_codes WHERE used = true OR expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("[AuthCodeRepo.DeleteExpiredOrUsed] %w", err)
	}
	return tag.RowsAffected(), nil
}
