package clients

import "context"

// Repo returns errors.ErrNotFound for unknown apps.
type Repo interface {
	Create(ctx context.Context, app *App) error
	Get(ctx context.Context, appID string) (*App, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*App, error)
}
