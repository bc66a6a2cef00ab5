package fakeclientrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-server/clients"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

var _ clients.Repo = (*FakeAppRepo)(nil)

type FakeAppRepo struct {
	apps map[string]*clients.App
	lock sync.RWMutex
}

func NewFakeAppRepo() clients.Repo {
	return &FakeAppRepo{
		apps: make(map[string]*clients.App),
	}
}

func (r *FakeAppRepo) Create(_ context.Context, app *clients.App) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now()
	}
	cp := *app
	cp.RedirectURIs = append([]string(nil), app.RedirectURIs...)
	r.apps[app.ID] = &cp
	return nil
}

func (r *FakeAppRepo) Get(_ context.Context, appID string) (*clients.App, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	app, ok := r.apps[appID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *app
	return &cp, nil
}

func (r *FakeAppRepo) ListByTenant(_ context.Context, tenantID string) ([]*clients.App, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	apps := make([]*clients.App, 0)
	for _, app := range r.apps {
		if app.TenantID == tenantID {
			cp := *app
			apps = append(apps, &cp)
		}
	}
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].ID < apps[j].ID
	})
	return apps, nil
}
