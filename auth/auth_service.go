// Package auth composes the token, session, code and OTP engines into the
// flows the HTTP boundary exposes: signin, signout, portal handoff and code exchange.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-sso-server/authcodes"
	"github.com/jrsteele09/go-sso-server/clients"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/logging"
	"github.com/jrsteele09/go-sso-server/internal/metrics"
	"github.com/jrsteele09/go-sso-server/otp"
	"github.com/jrsteele09/go-sso-server/sessions"
	"github.com/jrsteele09/go-sso-server/tenants"
	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/jrsteele09/go-sso-server/users"
)

// Repos holds the collaborator data the flows read.
type Repos struct {
	Users   users.UserRepo
	Tenants tenants.Repo
	Apps    clients.Repo
}

// Engines holds the stateful core components, one instance per process.
type Engines struct {
	Issuer  *token.Issuer
	Refresh *refresh.Engine
	SSO     *sessions.SSOManager
	Apps    *sessions.AppManager
	Codes   *authcodes.Broker
	OTP     *otp.Engine
}

// AuthenticationService runs the signin, handoff and exchange flows.
type AuthenticationService struct {
	repos     Repos
	engines   Engines
	guard     *tenants.Guard
	validator *Validator
	accessTTL time.Duration
}

type AuthenticationServiceOption func(*AuthenticationService)

// WithAccessTokenTTL sets the lifetime of app-scoped access tokens minted at exchange.
func WithAccessTokenTTL(ttl time.Duration) AuthenticationServiceOption {
	return func(as *AuthenticationService) {
		if ttl > 0 {
			as.accessTTL = ttl
		}
	}
}

func NewAuthenticationService(repos Repos, engines Engines, options ...AuthenticationServiceOption) (*AuthenticationService, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewAuthenticationService] Users repo is required")
	}
	if repos.Tenants == nil {
		return nil, errors.New("[NewAuthenticationService] Tenants repo is required")
	}
	if repos.Apps == nil {
		return nil, errors.New("[NewAuthenticationService] Apps repo is required")
	}
	if engines.Issuer == nil || engines.Refresh == nil || engines.SSO == nil ||
		engines.Apps == nil || engines.Codes == nil || engines.OTP == nil {
		return nil, errors.New("[NewAuthenticationService] all engines are required")
	}

	as := &AuthenticationService{
		repos:     repos,
		engines:   engines,
		guard:     tenants.NewGuard(repos.Tenants),
		validator: NewValidator(),
		accessTTL: 15 * time.Minute,
	}
	for _, opt := range options {
		opt(as)
	}
	return as, nil
}

// SignIn checks the password and, when the user has OTP enabled, a second factor.
// It then issues a token pair and opens an SSO session.
func (as *AuthenticationService) SignIn(ctx context.Context, req SignInRequest, meta RequestMeta) (result *SignInResult, err error) {
	defer func() { metrics.Signin(err) }()

	if err := as.validator.ValidateUserCredentials(req.Email, req.Password); err != nil {
		return nil, err
	}
	if err := as.validator.ValidateSecondFactor(req.OTPCode, req.BackupCode); err != nil {
		return nil, err
	}

	user, err := as.repos.Users.GetByEmail(ctx, users.NormalizeEmail(req.Email))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("[AuthenticationService.SignIn] GetByEmail: %w", err)
	}
	if !users.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.Active() {
		logging.FromContext(ctx).Info().Str("user_id", user.ID).Str("status", string(user.Status)).Msg("signin rejected for inactive account")
		return nil, apperrors.ErrAccountNotActive
	}

	if err := as.checkSecondFactor(ctx, user.ID, req.OTPCode, req.BackupCode); err != nil {
		return nil, err
	}

	if req.TenantID != "" {
		if _, err := as.guard.RequireMember(ctx, req.TenantID, user.ID); err != nil {
			return nil, err
		}
	}

	pair, err := as.engines.Refresh.Issue(ctx, user.ID, req.ClientID, meta.refresh())
	if err != nil {
		return nil, fmt.Errorf("[AuthenticationService.SignIn] %w", err)
	}
	session, err := as.engines.SSO.Create(ctx, user.ID, meta.session())
	if err != nil {
		// The refresh token never reaches the client, so its chain must not outlive this call.
		if revokeErr := as.engines.Refresh.RevokeByToken(ctx, pair.RefreshToken); revokeErr != nil {
			logging.FromContext(ctx).Error().Err(revokeErr).Str("user_id", user.ID).Msg("failed to revoke refresh token after session create failure")
		}
		return nil, fmt.Errorf("[AuthenticationService.SignIn] %w", err)
	}

	logging.FromContext(ctx).Info().Str("user_id", user.ID).Msg("user signed in")
	return &SignInResult{Tokens: pair, Session: session, User: user}, nil
}

func (as *AuthenticationService) checkSecondFactor(ctx context.Context, userID, otpCode, backupCode string) error {
	enabled, err := as.engines.OTP.Enabled(ctx, userID)
	if err != nil {
		return fmt.Errorf("[AuthenticationService.SignIn] %w", err)
	}
	if !enabled {
		return nil
	}

	var ok bool
	switch {
	case strings.TrimSpace(otpCode) != "":
		ok, err = as.engines.OTP.ValidateLogin(ctx, userID, otpCode)
	case strings.TrimSpace(backupCode) != "":
		ok, err = as.engines.OTP.ConsumeBackupCode(ctx, userID, backupCode)
	}
	if err != nil {
		return fmt.Errorf("[AuthenticationService.SignIn] %w", err)
	}
	if !ok {
		return apperrors.ErrOTPRequired
	}
	return nil
}

// SignOut revokes the presented refresh token and ends the SSO session. With All
// set it revokes every refresh token and session the user holds.
func (as *AuthenticationService) SignOut(ctx context.Context, req SignOutRequest) error {
	if req.All {
		if req.UserID == "" {
			return apperrors.ErrInvalidToken
		}
		if err := as.engines.Refresh.RevokeAllForUser(ctx, req.UserID); err != nil {
			return err
		}
		if err := as.engines.SSO.DestroyAllForUser(ctx, req.UserID); err != nil {
			return err
		}
		return as.engines.Apps.DestroyAllForUser(ctx, req.UserID)
	}

	if err := as.engines.Refresh.RevokeByToken(ctx, req.RefreshToken); err != nil {
		return err
	}
	return as.engines.SSO.Destroy(ctx, req.SessionToken)
}

// Authorize hands the SSO session's user off to an app: the app must belong to
// the tenant, the redirect must be registered and the user must be a member.
func (as *AuthenticationService) Authorize(ctx context.Context, sessionToken string, req AuthorizeRequest) (*Handoff, error) {
	if err := as.validator.ValidateAuthorizeRequest(req); err != nil {
		return nil, err
	}

	uc, err := as.engines.SSO.Validate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	app, err := as.lookupApp(ctx, req.AppID, req.TenantID)
	if err != nil {
		return nil, err
	}
	if !app.AllowsRedirect(req.RedirectURI) {
		return nil, apperrors.ErrRedirectMismatch
	}
	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = app.DefaultRedirect()
	}

	if _, err := as.guard.RequireMember(ctx, req.TenantID, uc.UserID); err != nil {
		return nil, err
	}

	code, err := as.engines.Codes.Generate(ctx, uc.UserID, req.TenantID, app.ID, redirectURI)
	if err != nil {
		return nil, err
	}
	return &Handoff{
		Code:        code,
		RedirectURI: redirectURI,
		ExpiresIn:   int64(as.engines.Codes.TTL().Seconds()),
	}, nil
}

// Exchange redeems a code for the app it was minted for. Membership is checked
// again so a user removed from the tenant after handoff gets nothing.
func (as *AuthenticationService) Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	if err := as.validator.ValidateExchangeRequest(req); err != nil {
		return nil, err
	}

	identity, err := as.engines.Codes.Validate(ctx, req.Code, req.AppID, req.RedirectURI)
	if err != nil {
		return nil, err
	}

	role, err := as.guard.RequireMember(ctx, identity.TenantID, identity.UserID)
	if err != nil {
		return nil, err
	}

	user, err := as.repos.Users.GetByID(ctx, identity.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrAccountNotActive
		}
		return nil, fmt.Errorf("[AuthenticationService.Exchange] GetByID: %w", err)
	}
	if !user.Active() {
		return nil, apperrors.ErrAccountNotActive
	}

	access, err := as.engines.Issuer.Issue(token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
		Email:            user.Email,
		TenantID:         identity.TenantID,
		Role:             role,
		ClientID:         identity.AppID,
	}, as.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("[AuthenticationService.Exchange] %w", err)
	}

	return &ExchangeResult{
		Identity:    *identity,
		Email:       user.Email,
		Name:        user.Name,
		Role:        role,
		AccessToken: access,
		TokenType:   refresh.TokenTypeBearer,
		ExpiresIn:   int64(as.accessTTL.Seconds()),
	}, nil
}

// EstablishAppSession exchanges a code and opens an app session for the result.
func (as *AuthenticationService) EstablishAppSession(ctx context.Context, req ExchangeRequest, meta RequestMeta) (*ExchangeResult, *sessions.Issued, error) {
	result, err := as.Exchange(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	issued, err := as.engines.Apps.Create(ctx, result.AppID, result.TenantID, result.UserID, result.Role, meta.session())
	if err != nil {
		return nil, nil, err
	}
	return result, issued, nil
}

func (as *AuthenticationService) lookupApp(ctx context.Context, appID, tenantID string) (*clients.App, error) {
	app, err := as.repos.Apps.Get(ctx, appID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnknownApp
		}
		return nil, fmt.Errorf("[AuthenticationService] get app: %w", err)
	}
	if app.TenantID != tenantID {
		return nil, apperrors.ErrUnknownApp
	}
	return app, nil
}
