package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-sso-server/clients"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

var _ clients.Repo = (*AppRepo)(nil)

type AppRepo struct {
	pool *pgxpool.Pool
}

func NewAppRepo(pool *pgxpool.Pool) *AppRepo {
	return &AppRepo{pool: pool}
}

func (r *AppRepo) Create(ctx context.Context, app *clients.App) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	uris := app.RedirectURIs
	if uris == nil {
		uris = []string{}
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO apps (id, tenant_id, name, redirect_uris, created_at) VALUES ($1, $2, $3, $4, $5)`,
		app.ID, app.TenantID, app.Name, uris, app.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrapf(apperrors.ErrInvalidRequest, "app %s already registered", app.ID)
		}
		return fmt.Errorf("[AppRepo.Create] %w", err)
	}
	return nil
}

func (r *AppRepo) Get(ctx context.Context, appID string) (*clients.App, error) {
	var a clients.App
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, name, redirect_uris, created_at FROM apps WHERE id = $1`, appID).
		Scan(&a.ID, &a.TenantID, &a.Name, &a.RedirectURIs, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AppRepo) ListByTenant(ctx context.Context, tenantID string) ([]*clients.App, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, tenant_id, name, redirect_uris, created_at FROM apps
WHERE tenant_id = $1
ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("[AppRepo.ListByTenant] %w", err)
	}
	apps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*clients.App, error) {
		var a clients.App
		err := row.Scan(&a.ID, &a.TenantID, &a.Name, &a.RedirectURIs, &a.CreatedAt)
		return &a, err
	})
	if err != nil {
		return nil, fmt.Errorf("[AppRepo.ListByTenant] %w", err)
	}
	return apps, nil
}
