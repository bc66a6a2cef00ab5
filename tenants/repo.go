package tenants

import "context"

// Repo returns errors.ErrNotFound for unknown tenants and memberships.
type Repo interface {
	Create(ctx context.Context, tenant *Tenant) error
	Get(ctx context.Context, tenantID string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)

	// UpsertMember adds the user to the tenant or replaces their role.
	UpsertMember(ctx context.Context, member *Member) error
	GetMember(ctx context.Context, tenantID, userID string) (*Member, error)
	RemoveMember(ctx context.Context, tenantID, userID string) error
	ListMemberships(ctx context.Context, userID string) ([]*Member, error)
}
