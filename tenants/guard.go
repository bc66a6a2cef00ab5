package tenants

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

// Guard performs the tenant scoping check the core runs before any tenant-scoped
// read or write. It always reads the current membership from the repo.
type Guard struct {
	repo Repo
}

func NewGuard(repo Repo) *Guard {
	return &Guard{repo: repo}
}

// RequireMember returns the user's role in tenantID, or ErrNotTenantMember.
func (g *Guard) RequireMember(ctx context.Context, tenantID, userID string) (string, error) {
	if tenantID == "" || userID == "" {
		return "", apperrors.ErrNotTenantMember
	}
	member, err := g.repo.GetMember(ctx, tenantID, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.ErrNotTenantMember
		}
		return "", fmt.Errorf("[Guard RequireMember] %w", err)
	}
	return member.Role, nil
}

// RequireRole is RequireMember plus an exact match on one of roles.
func (g *Guard) RequireRole(ctx context.Context, tenantID, userID string, roles ...string) (string, error) {
	role, err := g.RequireMember(ctx, tenantID, userID)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if r == role {
			return role, nil
		}
	}
	return "", apperrors.ErrNotTenantMember
}
