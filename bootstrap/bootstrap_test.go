package bootstrap_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-sso-server/bootstrap"
	"github.com/jrsteele09/go-sso-server/clients"
	clientrepofake "github.com/jrsteele09/go-sso-server/clients/repofake"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/tenants"
	tenantrepofakes "github.com/jrsteele09/go-sso-server/tenants/repofakes"
	"github.com/jrsteele09/go-sso-server/users"
	userrepofake "github.com/jrsteele09/go-sso-server/users/repofake"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://sso.example.com:8443/"

type testFixture struct {
	users       users.UserRepo
	tenants     tenants.Repo
	apps        clients.Repo
	provisioner *bootstrap.Provisioner
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		users:   userrepofake.NewFakeUserRepo(),
		tenants: tenantrepofakes.NewFakeTenantRepo(),
		apps:    clientrepofake.NewFakeAppRepo(),
	}
	var err error
	f.provisioner, err = bootstrap.NewProvisioner(f.users, f.tenants, f.apps)
	require.NoError(t, err)
	return f
}

func TestNewProvisioner_RequiresRepos(t *testing.T) {
	_, err := bootstrap.NewProvisioner(nil, tenantrepofakes.NewFakeTenantRepo(), clientrepofake.NewFakeAppRepo())
	require.Error(t, err)
}

func TestRun_SeedsDefaults(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	result, err := f.provisioner.Run(ctx, bootstrap.Request{BaseURL: testBaseURL})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"tenant", "admin", "app"}, result.Created)
	require.NotEmpty(t, result.GeneratedPassword)

	require.Equal(t, bootstrap.DefaultTenantSlug, result.Tenant.Slug)
	require.Equal(t, "admin@sso.example.com", result.Admin.Email)
	require.True(t, result.Admin.Active())

	stored, err := f.users.GetByEmail(ctx, "admin@sso.example.com")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash(result.GeneratedPassword, stored.PasswordHash))

	member, err := f.tenants.GetMember(ctx, result.Tenant.ID, result.Admin.ID)
	require.NoError(t, err)
	require.Equal(t, tenants.RoleAdmin, member.Role)

	app, err := f.apps.Get(ctx, bootstrap.DefaultAppID)
	require.NoError(t, err)
	require.Equal(t, result.Tenant.ID, app.TenantID)
	require.Equal(t, []string{"https://sso.example.com:8443/admin/callback"}, app.RedirectURIs)
}

func TestRun_Idempotent(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	first, err := f.provisioner.Run(ctx, bootstrap.Request{BaseURL: testBaseURL})
	require.NoError(t, err)

	second, err := f.provisioner.Run(ctx, bootstrap.Request{BaseURL: testBaseURL})
	require.NoError(t, err)
	require.Empty(t, second.Created)
	require.Empty(t, second.GeneratedPassword)
	require.Equal(t, first.Tenant.ID, second.Tenant.ID)
	require.Equal(t, first.Admin.ID, second.Admin.ID)
	require.Equal(t, first.App.ID, second.App.ID)
}

func TestRun_ExplicitPassword(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.provisioner.Run(ctx, bootstrap.Request{BaseURL: testBaseURL, AdminPassword: "weak"})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	result, err := f.provisioner.Run(ctx, bootstrap.Request{
		BaseURL:       testBaseURL,
		AdminEmail:    "Root@Example.com",
		AdminPassword: "Str0ngPassword",
		TenantSlug:    "acme",
		AppID:         "crm",
		RedirectURIs:  []string{"https://crm.example.com/callback"},
	})
	require.NoError(t, err)
	require.Empty(t, result.GeneratedPassword)
	require.Equal(t, "root@example.com", result.Admin.Email)
	require.Equal(t, "acme", result.Tenant.Slug)
	require.Equal(t, []string{"https://crm.example.com/callback"}, result.App.RedirectURIs)
}

func TestRun_AppOwnedByAnotherTenant(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.apps.Create(ctx, &clients.App{ID: "crm", TenantID: "other-tenant"}))

	_, err := f.provisioner.Run(ctx, bootstrap.Request{BaseURL: testBaseURL, AppID: "crm"})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestEmailFromBaseURL(t *testing.T) {
	require.Equal(t, "admin@auth.example.com", bootstrap.EmailFromBaseURL("admin", "https://auth.example.com/path"))
	require.Equal(t, "admin@localhost.localdomain", bootstrap.EmailFromBaseURL("admin", "http://localhost:8080"))
}
