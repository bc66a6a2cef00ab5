package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/tenants"
)

var _ tenants.Repo = (*TenantRepo)(nil)

type TenantRepo struct {
	pool *pgxpool.Pool
}

func NewTenantRepo(pool *pgxpool.Pool) *TenantRepo {
	return &TenantRepo{pool: pool}
}

func (r *TenantRepo) Create(ctx context.Context, tenant *tenants.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO tenants (id, slug, name, created_at) VALUES ($1, $2, $3, $4)`,
		tenant.ID, tenant.Slug, tenant.Name, tenant.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrapf(apperrors.ErrInvalidRequest, "tenant %s already exists", tenant.Slug)
		}
		return fmt.Errorf("[TenantRepo.Create] %w", err)
	}
	return nil
}

func (r *TenantRepo) Get(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	return r.getOne(ctx, `SELECT id, slug, name, created_at FROM tenants WHERE id = $1`, tenantID)
}

func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*tenants.Tenant, error) {
	return r.getOne(ctx, `SELECT id, slug, name, created_at FROM tenants WHERE slug = $1`, slug)
}

func (r *TenantRepo) getOne(ctx context.Context, q, arg string) (*tenants.Tenant, error) {
	var t tenants.Tenant
	if err := r.pool.QueryRow(ctx, q, arg).Scan(&t.ID, &t.Slug, &t.Name, &t.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TenantRepo) UpsertMember(ctx context.Context, member *tenants.Member) error {
	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO tenant_members (tenant_id, user_id, role, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id, user_id) DO UPDATE SET role = EXCLUDED.role`
	_, err := r.pool.Exec(ctx, q, member.TenantID, member.UserID, member.Role, member.CreatedAt)
	return wrapExec("TenantRepo.UpsertMember", err)
}

func (r *TenantRepo) GetMember(ctx context.Context, tenantID, userID string) (*tenants.Member, error) {
	const q = `SELECT tenant_id, user_id, role, created_at FROM tenant_members WHERE tenant_id = $1 AND user_id = $2`
	var m tenants.Member
	if err := r.pool.QueryRow(ctx, q, tenantID, userID).Scan(&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *TenantRepo) RemoveMember(ctx context.Context, tenantID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tenant_members WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID)
	return wrapExec("TenantRepo.RemoveMember", err)
}

func (r *TenantRepo) ListMemberships(ctx context.Context, userID string) ([]*tenants.Member, error) {
	rows, err := r.pool.Query(ctx, `
SELECT tenant_id, user_id, role, created_at FROM tenant_members
WHERE user_id = $1
ORDER BY tenant_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("[TenantRepo.ListMemberships] %w", err)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*tenants.Member, error) {
		var m tenants.Member
		err := row.Scan(&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt)
		return &m, err
	})
	if err != nil {
		return nil, fmt.Errorf("[TenantRepo.ListMemberships] %w", err)
	}
	return members, nil
}
