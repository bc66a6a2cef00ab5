package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-sso-server/auth"
	"github.com/jrsteele09/go-sso-server/authcodes"
	authcoderepofake "github.com/jrsteele09/go-sso-server/authcodes/repofake"
	"github.com/jrsteele09/go-sso-server/clients"
	fakeclientrepo "github.com/jrsteele09/go-sso-server/clients/repofake"
	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/otp"
	otprepofake "github.com/jrsteele09/go-sso-server/otp/repofake"
	"github.com/jrsteele09/go-sso-server/sessions"
	sessionrepofakes "github.com/jrsteele09/go-sso-server/sessions/repofakes"
	"github.com/jrsteele09/go-sso-server/tenants"
	tenantrepofakes "github.com/jrsteele09/go-sso-server/tenants/repofakes"
	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/token/keys"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-sso-server/token/refresh/repofake"
	"github.com/jrsteele09/go-sso-server/users"
	fakeuserrepo "github.com/jrsteele09/go-sso-server/users/repofake"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

const (
	issuer           = "https://sso.example.com"
	audience         = "sso-apps"
	testTenantID     = "tenant-1"
	testAppID        = "crm"
	testRedirectURI  = "https://crm.example.com/callback"
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "Password123"
)

// failingSSORepo fails Insert while insertErr is set.
type failingSSORepo struct {
	sessions.SSORepo
	insertErr error
}

func (r *failingSSORepo) Insert(ctx context.Context, s *sessions.SSOSession) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	return r.SSORepo.Insert(ctx, s)
}

type testFixture struct {
	userRepo    users.UserRepo
	refreshRepo *refreshrepofake.FakeRefreshTokenRepo
	ssoRepo     *failingSSORepo
	tenantRepo  tenants.Repo
	appRepo     clients.Repo
	otpEngine   *otp.Engine
	issuer      *token.Issuer
	service     *auth.AuthenticationService
	user        *users.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	cfg := config.NewWithOverrides(map[string]string{
		"JWT_ISSUER":   issuer,
		"JWT_AUDIENCE": audience,
		"OTP_ISSUER":   "Test SSO",
	})

	f := &testFixture{
		userRepo:   fakeuserrepo.NewFakeUserRepo(),
		tenantRepo: tenantrepofakes.NewFakeTenantRepo(),
		appRepo:    fakeclientrepo.NewFakeAppRepo(),
	}

	kp, err := keys.GenerateRSAKeyPair("test-kid", 2048)
	require.NoError(t, err)
	f.issuer = token.NewIssuer(issuer, audience)
	require.NoError(t, f.issuer.LoadKey(kp))

	f.refreshRepo = refreshrepofake.NewFakeRefreshTokenRepo()
	f.ssoRepo = &failingSSORepo{SSORepo: sessionrepofakes.NewFakeSSOSessionRepo()}
	refreshEngine, err := refresh.NewEngine(f.refreshRepo, f.issuer, cfg)
	require.NoError(t, err)
	sso, err := sessions.NewSSOManager(f.ssoRepo, f.userRepo, cfg)
	require.NoError(t, err)
	apps, err := sessions.NewAppManager(sessionrepofakes.NewFakeAppSessionRepo(), f.userRepo, cfg)
	require.NoError(t, err)
	codes, err := authcodes.NewBroker(authcoderepofake.NewFakeAuthCodeRepo(), cfg)
	require.NoError(t, err)
	f.otpEngine, err = otp.NewEngine(otprepofake.NewFakeOTPRepo(), cfg)
	require.NoError(t, err)

	f.service, err = auth.NewAuthenticationService(
		auth.Repos{Users: f.userRepo, Tenants: f.tenantRepo, Apps: f.appRepo},
		auth.Engines{Issuer: f.issuer, Refresh: refreshEngine, SSO: sso, Apps: apps, Codes: codes, OTP: f.otpEngine},
		auth.WithAccessTokenTTL(10*time.Minute),
	)
	require.NoError(t, err)

	hash, err := users.HashPassword(testUserPassword)
	require.NoError(t, err)
	f.user = &users.User{Email: testUserEmail, PasswordHash: hash, Name: "John", Status: users.StatusActive}
	require.NoError(t, f.userRepo.Create(ctx, f.user))

	require.NoError(t, f.tenantRepo.Create(ctx, &tenants.Tenant{ID: testTenantID, Slug: "acme", Name: "Acme"}))
	require.NoError(t, f.tenantRepo.UpsertMember(ctx, &tenants.Member{TenantID: testTenantID, UserID: f.user.ID, Role: tenants.RoleAdmin}))
	require.NoError(t, f.appRepo.Create(ctx, &clients.App{ID: testAppID, TenantID: testTenantID, Name: "CRM", RedirectURIs: []string{testRedirectURI}}))
	return f
}

func (f *testFixture) signIn(t *testing.T) *auth.SignInResult {
	t.Helper()
	res, err := f.service.SignIn(context.Background(), auth.SignInRequest{Email: testUserEmail, Password: testUserPassword}, auth.RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	return res
}

func TestNewAuthenticationService_RequiresDependencies(t *testing.T) {
	_, err := auth.NewAuthenticationService(auth.Repos{}, auth.Engines{})
	require.Error(t, err)
}

func TestSignIn(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	res := f.signIn(t)
	require.NotEmpty(t, res.Tokens.AccessToken)
	require.NotEmpty(t, res.Tokens.RefreshToken)
	require.NotEmpty(t, res.Session.SessionToken)
	require.Equal(t, f.user.ID, res.User.ID)

	claims, err := f.issuer.Verify(res.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, claims.Subject)

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.service.SignIn(ctx, auth.SignInRequest{Email: testUserEmail, Password: "wrong"}, auth.RequestMeta{})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.service.SignIn(ctx, auth.SignInRequest{Email: "nobody@example.com", Password: testUserPassword}, auth.RequestMeta{})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("malformed request", func(t *testing.T) {
		_, err := f.service.SignIn(ctx, auth.SignInRequest{Email: "not-an-email", Password: testUserPassword}, auth.RequestMeta{})
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	t.Run("tenant the user is not a member of", func(t *testing.T) {
		_, err := f.service.SignIn(ctx, auth.SignInRequest{Email: testUserEmail, Password: testUserPassword, TenantID: "tenant-2"}, auth.RequestMeta{})
		require.ErrorIs(t, err, apperrors.ErrNotTenantMember)
	})

	t.Run("suspended account", func(t *testing.T) {
		require.NoError(t, f.userRepo.SetStatus(ctx, f.user.ID, users.StatusSuspended))
		defer func() { require.NoError(t, f.userRepo.SetStatus(ctx, f.user.ID, users.StatusActive)) }()

		_, err := f.service.SignIn(ctx, auth.SignInRequest{Email: testUserEmail, Password: testUserPassword}, auth.RequestMeta{})
		require.ErrorIs(t, err, apperrors.ErrAccountNotActive)
	})
}

func TestSignIn_SessionCreateFailureRevokesRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	f.ssoRepo.insertErr = errors.New("database unavailable")

	_, err := f.service.SignIn(context.Background(), auth.SignInRequest{Email: testUserEmail, Password: testUserPassword}, auth.RequestMeta{})
	require.Error(t, err)

	records := f.refreshRepo.ForUser(f.user.ID)
	require.Len(t, records, 1)
	require.True(t, records[0].Revoked)

	// A later signin is unaffected.
	f.ssoRepo.insertErr = nil
	res := f.signIn(t)
	require.NotEmpty(t, res.Session.SessionToken)
}

func TestSignIn_SecondFactor(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	setup, err := f.otpEngine.GenerateSecret(ctx, f.user.ID, testUserEmail)
	require.NoError(t, err)
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	ok, err := f.otpEngine.VerifyAndActivate(ctx, f.user.ID, code)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.service.SignIn(ctx, auth.SignInRequest{Email: testUserEmail, Password: testUserPassword}, auth.RequestMeta{})
	require.ErrorIs(t, err, apperrors.ErrOTPRequired)

	_, err = f.service.SignIn(ctx, auth.SignInRequest{Email: testUserEmail, Password: testUserPassword, OTPCode: "000000"}, auth.RequestMeta{})
	require.ErrorIs(t, err, apperrors.ErrOTPRequired)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	_, err = f.service.SignIn(ctx, auth.SignInRequest{Email: testUserEmail, Password: testUserPassword, OTPCode: code}, auth.RequestMeta{})
	require.NoError(t, err)

	backup := setup.BackupCodes[0]
	_, err = f.service.SignIn(ctx, auth.SignInRequest{Email: testUserEmail, Password: testUserPassword, BackupCode: backup}, auth.RequestMeta{})
	require.NoError(t, err)
	_, err = f.service.SignIn(ctx, auth.SignInRequest{Email: testUserEmail, Password: testUserPassword, BackupCode: backup}, auth.RequestMeta{})
	require.ErrorIs(t, err, apperrors.ErrOTPRequired)

	_, err = f.service.SignIn(ctx, auth.SignInRequest{Email: testUserEmail, Password: testUserPassword, OTPCode: code, BackupCode: backup}, auth.RequestMeta{})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestAuthorizeAndExchange(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	res := f.signIn(t)

	handoff, err := f.service.Authorize(ctx, res.Session.SessionToken, auth.AuthorizeRequest{TenantID: testTenantID, AppID: testAppID})
	require.NoError(t, err)
	require.Equal(t, testRedirectURI, handoff.RedirectURI)
	require.Equal(t, int64(300), handoff.ExpiresIn)

	result, err := f.service.Exchange(ctx, auth.ExchangeRequest{Code: handoff.Code, AppID: testAppID, RedirectURI: testRedirectURI})
	require.NoError(t, err)
	require.Equal(t, f.user.ID, result.UserID)
	require.Equal(t, testTenantID, result.TenantID)
	require.Equal(t, tenants.RoleAdmin, result.Role)
	require.Equal(t, testUserEmail, result.Email)
	require.Equal(t, int64(600), result.ExpiresIn)

	claims, err := f.issuer.Verify(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testTenantID, claims.TenantID)
	require.Equal(t, tenants.RoleAdmin, claims.Role)
	require.Equal(t, testAppID, claims.ClientID)

	_, err = f.service.Exchange(ctx, auth.ExchangeRequest{Code: handoff.Code, AppID: testAppID})
	require.ErrorIs(t, err, apperrors.ErrCodeAlreadyUsed)
}

func TestAuthorize_Failures(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	res := f.signIn(t)
	sessionToken := res.Session.SessionToken

	tests := []struct {
		name    string
		session string
		req     auth.AuthorizeRequest
		wantErr error
	}{
		{"no session", "", auth.AuthorizeRequest{TenantID: testTenantID, AppID: testAppID}, apperrors.ErrSessionNotFound},
		{"missing tenant", sessionToken, auth.AuthorizeRequest{AppID: testAppID}, apperrors.ErrInvalidRequest},
		{"unknown app", sessionToken, auth.AuthorizeRequest{TenantID: testTenantID, AppID: "hr"}, apperrors.ErrUnknownApp},
		{"app in another tenant", sessionToken, auth.AuthorizeRequest{TenantID: "tenant-2", AppID: testAppID}, apperrors.ErrUnknownApp},
		{"unregistered redirect", sessionToken, auth.AuthorizeRequest{TenantID: testTenantID, AppID: testAppID, RedirectURI: "https://evil.example.com/cb"}, apperrors.ErrRedirectMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Authorize(ctx, tt.session, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("not a member", func(t *testing.T) {
		require.NoError(t, f.tenantRepo.RemoveMember(ctx, testTenantID, f.user.ID))
		_, err := f.service.Authorize(ctx, sessionToken, auth.AuthorizeRequest{TenantID: testTenantID, AppID: testAppID})
		require.ErrorIs(t, err, apperrors.ErrNotTenantMember)
	})
}

func TestExchange_MembershipRevokedAfterHandoff(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	res := f.signIn(t)

	handoff, err := f.service.Authorize(ctx, res.Session.SessionToken, auth.AuthorizeRequest{TenantID: testTenantID, AppID: testAppID})
	require.NoError(t, err)

	require.NoError(t, f.tenantRepo.RemoveMember(ctx, testTenantID, f.user.ID))
	_, err = f.service.Exchange(ctx, auth.ExchangeRequest{Code: handoff.Code, AppID: testAppID})
	require.ErrorIs(t, err, apperrors.ErrNotTenantMember)
}

func TestExchange_WrongApp(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	res := f.signIn(t)

	handoff, err := f.service.Authorize(ctx, res.Session.SessionToken, auth.AuthorizeRequest{TenantID: testTenantID, AppID: testAppID})
	require.NoError(t, err)

	_, err = f.service.Exchange(ctx, auth.ExchangeRequest{Code: handoff.Code, AppID: "hr"})
	require.ErrorIs(t, err, apperrors.ErrAppMismatch)
}

func TestEstablishAppSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	res := f.signIn(t)

	handoff, err := f.service.Authorize(ctx, res.Session.SessionToken, auth.AuthorizeRequest{TenantID: testTenantID, AppID: testAppID})
	require.NoError(t, err)

	result, issued, err := f.service.EstablishAppSession(ctx, auth.ExchangeRequest{Code: handoff.Code, AppID: testAppID}, auth.RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, f.user.ID, result.UserID)
	require.NotEmpty(t, issued.SessionToken)
}

func TestSignOut(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	t.Run("single token", func(t *testing.T) {
		res := f.signIn(t)
		require.NoError(t, f.service.SignOut(ctx, auth.SignOutRequest{RefreshToken: res.Tokens.RefreshToken, SessionToken: res.Session.SessionToken}))
		require.NoError(t, f.service.SignOut(ctx, auth.SignOutRequest{RefreshToken: res.Tokens.RefreshToken, SessionToken: res.Session.SessionToken}))

		_, err := f.service.Authorize(ctx, res.Session.SessionToken, auth.AuthorizeRequest{TenantID: testTenantID, AppID: testAppID})
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("all sessions", func(t *testing.T) {
		a := f.signIn(t)
		b := f.signIn(t)
		require.NoError(t, f.service.SignOut(ctx, auth.SignOutRequest{UserID: f.user.ID, All: true}))

		for _, res := range []*auth.SignInResult{a, b} {
			_, err := f.service.Authorize(ctx, res.Session.SessionToken, auth.AuthorizeRequest{TenantID: testTenantID, AppID: testAppID})
			require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
		}
	})

	t.Run("all without a user", func(t *testing.T) {
		err := f.service.SignOut(ctx, auth.SignOutRequest{All: true})
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}
