// Package bootstrap seeds a fresh installation with a tenant, an admin member
// and a first app. Every step is skipped when its record already exists, so it
// is safe to run on every deploy.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-sso-server/clients"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/logging"
	"github.com/jrsteele09/go-sso-server/internal/securetoken"
	"github.com/jrsteele09/go-sso-server/tenants"
	"github.com/jrsteele09/go-sso-server/users"
)

const (
	DefaultTenantSlug    = "system"
	DefaultTenantName    = "System Tenant"
	DefaultAdminUsername = "admin"
	DefaultAppID         = "admin-dashboard"
	DefaultAppName       = "Admin Dashboard"
)

// Request describes what to seed. Empty fields fall back to the defaults above,
// with the admin email and redirect derived from BaseURL.
type Request struct {
	BaseURL       string
	TenantSlug    string
	TenantName    string
	AdminEmail    string
	AdminPassword string
	AppID         string
	AppName       string
	RedirectURIs  []string
}

// Result reports the seeded records. GeneratedPassword is set only when the
// admin was created without an explicit password.
type Result struct {
	Tenant            *tenants.Tenant
	Admin             *users.User
	App               *clients.App
	GeneratedPassword string
	Created           []string
}

type Provisioner struct {
	users   users.UserRepo
	tenants tenants.Repo
	apps    clients.Repo
}

func NewProvisioner(userRepo users.UserRepo, tenantRepo tenants.Repo, appRepo clients.Repo) (*Provisioner, error) {
	if userRepo == nil || tenantRepo == nil || appRepo == nil {
		return nil, fmt.Errorf("[bootstrap.NewProvisioner] users, tenants and apps repos are required")
	}
	return &Provisioner{users: userRepo, tenants: tenantRepo, apps: appRepo}, nil
}

func (p *Provisioner) Run(ctx context.Context, req Request) (*Result, error) {
	req = withDefaults(req)
	if req.AdminPassword != "" {
		if err := users.ValidatePasswordStrength(req.AdminPassword); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "%s", err.Error())
		}
	}

	result := &Result{}
	var err error
	if result.Tenant, err = p.ensureTenant(ctx, req, result); err != nil {
		return nil, fmt.Errorf("[bootstrap] tenant: %w", err)
	}
	if result.Admin, err = p.ensureAdmin(ctx, req, result); err != nil {
		return nil, fmt.Errorf("[bootstrap] admin: %w", err)
	}
	if err := p.tenants.UpsertMember(ctx, &tenants.Member{
		TenantID: result.Tenant.ID,
		UserID:   result.Admin.ID,
		Role:     tenants.RoleAdmin,
	}); err != nil {
		return nil, fmt.Errorf("[bootstrap] membership: %w", err)
	}
	if result.App, err = p.ensureApp(ctx, req, result); err != nil {
		return nil, fmt.Errorf("[bootstrap] app: %w", err)
	}
	return result, nil
}

func (p *Provisioner) ensureTenant(ctx context.Context, req Request, result *Result) (*tenants.Tenant, error) {
	existing, err := p.tenants.GetBySlug(ctx, req.TenantSlug)
	if err == nil {
		return existing, nil
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	tenant := &tenants.Tenant{Slug: req.TenantSlug, Name: req.TenantName}
	if err := p.tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info().Str("tenant_id", tenant.ID).Str("slug", tenant.Slug).Msg("created tenant")
	result.Created = append(result.Created, "tenant")
	return tenant, nil
}

func (p *Provisioner) ensureAdmin(ctx context.Context, req Request, result *Result) (*users.User, error) {
	existing, err := p.users.GetByEmail(ctx, users.NormalizeEmail(req.AdminEmail))
	if err == nil {
		return existing, nil
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	password := req.AdminPassword
	if password == "" {
		if password, err = securetoken.Generate(18); err != nil {
			return nil, err
		}
		result.GeneratedPassword = password
	}
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &users.User{
		Email:        req.AdminEmail,
		PasswordHash: hash,
		Name:         "System Administrator",
		Status:       users.StatusActive,
	}
	if err := p.users.Create(ctx, admin); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info().Str("user_id", admin.ID).Str("email", admin.Email).Msg("created admin user")
	result.Created = append(result.Created, "admin")
	return admin, nil
}

func (p *Provisioner) ensureApp(ctx context.Context, req Request, result *Result) (*clients.App, error) {
	existing, err := p.apps.Get(ctx, req.AppID)
	if err == nil {
		if existing.TenantID != result.Tenant.ID {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "app %s belongs to another tenant", req.AppID)
		}
		return existing, nil
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	app := &clients.App{
		ID:           req.AppID,
		TenantID:     result.Tenant.ID,
		Name:         req.AppName,
		RedirectURIs: req.RedirectURIs,
	}
	if err := p.apps.Create(ctx, app); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info().Str("app_id", app.ID).Str("tenant_id", app.TenantID).Msg("created app")
	result.Created = append(result.Created, "app")
	return app, nil
}

func withDefaults(req Request) Request {
	req.BaseURL = strings.TrimRight(req.BaseURL, "/")
	if req.TenantSlug == "" {
		req.TenantSlug = DefaultTenantSlug
	}
	if req.TenantName == "" {
		req.TenantName = DefaultTenantName
	}
	if req.AdminEmail == "" {
		req.AdminEmail = EmailFromBaseURL(DefaultAdminUsername, req.BaseURL)
	}
	if req.AppID == "" {
		req.AppID = DefaultAppID
	}
	if req.AppName == "" {
		req.AppName = DefaultAppName
	}
	if len(req.RedirectURIs) == 0 && req.BaseURL != "" {
		req.RedirectURIs = []string{req.BaseURL + "/admin/callback"}
	}
	return req
}

// EmailFromBaseURL creates an email address from a username and base URL.
// Example: ("admin", "https://auth.example.com/path") -> "admin@auth.example.com"
func EmailFromBaseURL(user, baseURL string) string {
	domain := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
	domain = strings.SplitN(domain, "/", 2)[0]
	domain = strings.SplitN(domain, ":", 2)[0]
	if domain == "" || domain == "localhost" {
		domain = "localhost.localdomain"
	}
	return fmt.Sprintf("%s@%s", user, domain)
}
