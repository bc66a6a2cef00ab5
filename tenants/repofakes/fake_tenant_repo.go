package tenantrepofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

type FakeTenantRepo struct {
	tenants map[string]*tenants.Tenant
	members map[string]*tenants.Member // tenantID/userID -> member
	lock    sync.RWMutex
}

func NewFakeTenantRepo() tenants.Repo {
	return &FakeTenantRepo{
		tenants: make(map[string]*tenants.Tenant),
		members: make(map[string]*tenants.Member),
	}
}

func memberKey(tenantID, userID string) string {
	return tenantID + "/" + userID
}

func (tr *FakeTenantRepo) Create(_ context.Context, tenant *tenants.Tenant) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now()
	}
	cp := *tenant
	tr.tenants[tenant.ID] = &cp
	return nil
}

func (tr *FakeTenantRepo) Get(_ context.Context, tenantID string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	tenant, ok := tr.tenants[tenantID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *tenant
	return &cp, nil
}

func (tr *FakeTenantRepo) GetBySlug(_ context.Context, slug string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	for _, tenant := range tr.tenants {
		if tenant.Slug == slug {
			cp := *tenant
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (tr *FakeTenantRepo) UpsertMember(_ context.Context, member *tenants.Member) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now()
	}
	cp := *member
	tr.members[memberKey(member.TenantID, member.UserID)] = &cp
	return nil
}

func (tr *FakeTenantRepo) GetMember(_ context.Context, tenantID, userID string) (*tenants.Member, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	member, ok := tr.members[memberKey(tenantID, userID)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *member
	return &cp, nil
}

func (tr *FakeTenantRepo) RemoveMember(_ context.Context, tenantID, userID string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	delete(tr.members, memberKey(tenantID, userID))
	return nil
}

func (tr *FakeTenantRepo) ListMemberships(_ context.Context, userID string) ([]*tenants.Member, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	members := make([]*tenants.Member, 0)
	for _, m := range tr.members {
		if m.UserID == userID {
			cp := *m
			members = append(members, &cp)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].TenantID < members[j].TenantID
	})
	return members, nil
}
