package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-sso-server/sessions"
)

var (
	_ sessions.SSORepo = (*SSOSessionRepo)(nil)
	_ sessions.AppRepo = (*AppSessionRepo)(nil)
)

type SSOSessionRepo struct {
	pool *pgxpool.Pool
}

func NewSSOSessionRepo(pool *pgxpool.Pool) *SSOSessionRepo {
	return &SSOSessionRepo{pool: pool}
}

func (r *SSOSessionRepo) Insert(ctx context.Context, s *sessions.SSOSession) error {
	const q = `
INSERT INTO sso_sessions (id, token_hash, user_id, ip, user_agent, expires_at, created_at, last_activity_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, q, s.ID, s.TokenHash, s.UserID, nullable(s.IP), nullable(s.UserAgent),
		s.ExpiresAt, s.CreatedAt, s.LastActivityAt)
	if err != nil {
		return fmt.Errorf("[SSOSessionRepo.Insert] %w", err)
	}
	return nil
}

func (r *SSOSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*sessions.SSOSession, error) {
	const q = `
SELECT id, token_hash, user_id, COALESCE(ip, ''), COALESCE(user_agent, ''), expires_at, created_at, last_activity_at
FROM sso_sessions
WHERE token_hash = $1`
	var s sessions.SSOSession
	err := r.pool.QueryRow(ctx, q, tokenHash).Scan(
		&s.ID, &s.TokenHash, &s.UserID, &s.IP, &s.UserAgent, &s.ExpiresAt, &s.CreatedAt, &s.LastActivityAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *SSOSessionRepo) Touch(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE sso_sessions SET last_activity_at = $2, expires_at = $3 WHERE id = $1`,
		id, lastActivityAt, expiresAt)
	if err != nil {
		return fmt.Errorf("[SSOSessionRepo.Touch] %w", err)
	}
	return nil
}

func (r *SSOSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sso_sessions WHERE id = $1`, id)
	return wrapExec("SSOSessionRepo.DeleteByID", err)
}

func (r *SSOSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sso_sessions WHERE token_hash = $1`, tokenHash)
	return wrapExec("SSOSessionRepo.DeleteByTokenHash", err)
}

func (r *SSOSessionRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sso_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("[SSOSessionRepo.DeleteAllForUser] %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SSOSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sso_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("[SSOSessionRepo.DeleteExpired] %w", err)
	}
	return tag.RowsAffected(), nil
}

type AppSessionRepo struct {
	pool *pgxpool.Pool
}

func NewAppSessionRepo(pool *pgxpool.Pool) *AppSessionRepo {
	return &AppSessionRepo{pool: pool}
}

func (r *AppSessionRepo) Insert(ctx context.Context, s *sessions.AppSession) error {
	const q = `
INSERT INTO app_sessions
    (id, token_hash, app_id, user_id, tenant_id, role, ip, user_agent, expires_at, created_at, last_activity_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, q, s.ID, s.TokenHash, s.AppID, s.UserID, s.TenantID, s.Role,
		nullable(s.IP), nullable(s.UserAgent), s.ExpiresAt, s.CreatedAt, s.LastActivityAt)
	if err != nil {
		return fmt.Errorf("[AppSessionRepo.Insert] %w", err)
	}
	return nil
}

func (r *AppSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*sessions.AppSession, error) {
	const q = `
SELECT id, token_hash, app_id, user_id, tenant_id, role, COALESCE(ip, ''), COALESCE(user_agent, ''),
       expires_at, created_at, last_activity_at
FROM app_sessions
WHERE token_hash = $1`
	var s sessions.AppSession
	err := r.pool.QueryRow(ctx, q, tokenHash).Scan(
		&s.ID, &s.TokenHash, &s.AppID, &s.UserID, &s.TenantID, &s.Role, &s.IP, &s.UserAgent,
		&s.ExpiresAt, &s.CreatedAt, &s.LastActivityAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *AppSessionRepo) Touch(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE app_sessions SET last_activity_at = $2, expires_at = $3 WHERE id = $1`,
		id, lastActivityAt, expiresAt)
	if err != nil {
		return fmt.Errorf("[AppSessionRepo.Touch] %w", err)
	}
	return nil
}

func (r *AppSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM app_sessions WHERE id = $1`, id)
	return wrapExec("AppSessionRepo.DeleteByID", err)
}

func (r *AppSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM app_sessions WHERE token_hash = $1`, tokenHash)
	return wrapExec("AppSessionRepo.DeleteByTokenHash", err)
}

func (r *AppSessionRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM app_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("[AppSessionRepo.DeleteAllForUser] %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *AppSessionRepo) DeleteForTenantApp(ctx context.Context, userID, appID, tenantID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM app_sessions WHERE user_id = $1 AND app_id = $2 AND tenant_id = $3`,
		userID, appID, tenantID)
	if err != nil {
		return 0, fmt.Errorf("[AppSessionRepo.DeleteForTenantApp] %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *AppSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM app_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("[AppSessionRepo.DeleteExpired] %w", err)
	}
	return tag.RowsAffected(), nil
}

func wrapExec(op string, err error) error {
	if err != nil {
		return fmt.Errorf("[%s] %w", op, err)
	}
	return nil
}
