package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-sso-server/auth"
	"github.com/jrsteele09/go-sso-server/authcodes"
	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/internal/store/postgres"
	"github.com/jrsteele09/go-sso-server/otp"
	"github.com/jrsteele09/go-sso-server/scheduler"
	"github.com/jrsteele09/go-sso-server/sessions"
	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/token/keys"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/rs/zerolog/log"
)

// app holds the process-wide repositories and engines. Every command that
// touches the database builds exactly one.
type app struct {
	cfg     config.Config
	pool    *pgxpool.Pool
	repos   auth.Repos
	engines auth.Engines
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	if cfg.GetDatabaseURL() == "" {
		return nil, fmt.Errorf("[newApp] DATABASE_URL is required")
	}
	pool, err := postgres.Open(ctx, cfg.GetDatabaseURL(), cfg.GetDBMaxConns())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:  cfg,
		pool: pool,
		repos: auth.Repos{
			Users:   postgres.NewUserRepo(pool),
			Tenants: postgres.NewTenantRepo(pool),
			Apps:    postgres.NewAppRepo(pool),
		},
	}
	if err := a.initEngines(); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) initEngines() error {
	issuer := token.NewIssuer(a.cfg.GetIssuer(), a.cfg.GetAudience())

	refreshEngine, err := refresh.NewEngine(postgres.NewRefreshTokenRepo(a.pool), issuer, a.cfg)
	if err != nil {
		return err
	}
	sso, err := sessions.NewSSOManager(postgres.NewSSOSessionRepo(a.pool), a.repos.Users, a.cfg)
	if err != nil {
		return err
	}
	appSessions, err := sessions.NewAppManager(postgres.NewAppSessionRepo(a.pool), a.repos.Users, a.cfg)
	if err != nil {
		return err
	}
	codes, err := authcodes.NewBroker(postgres.NewAuthCodeRepo(a.pool), a.cfg)
	if err != nil {
		return err
	}
	otpEngine, err := otp.NewEngine(postgres.NewOTPRepo(a.pool), a.cfg)
	if err != nil {
		return err
	}

	a.engines = auth.Engines{
		Issuer:  issuer,
		Refresh: refreshEngine,
		SSO:     sso,
		Apps:    appSessions,
		Codes:   codes,
		OTP:     otpEngine,
	}
	return nil
}

// loadSigningKey reads JWT_PRIVATE_KEY_FILE, or generates an ephemeral key when
// none is configured. Tokens signed with an ephemeral key die with the process.
func (a *app) loadSigningKey() error {
	var (
		kp  *keys.KeyPair
		err error
	)
	if path := a.cfg.GetPrivateKeyFile(); path != "" {
		kp, err = keys.LoadRSAKeyPairFile(a.cfg.GetKeyID(), path)
	} else {
		log.Warn().Str("kid", a.cfg.GetKeyID()).Msg("no signing key file configured, generating an ephemeral key")
		kp, err = keys.GenerateRSAKeyPair(a.cfg.GetKeyID(), a.cfg.GetKeyBits())
	}
	if err != nil {
		return fmt.Errorf("[loadSigningKey] %w", err)
	}
	return a.engines.Issuer.LoadKey(kp)
}

func (a *app) newAuthService() (*auth.AuthenticationService, error) {
	return auth.NewAuthenticationService(a.repos, a.engines, auth.WithAccessTokenTTL(a.cfg.GetAccessTokenTTL()))
}

func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(a.cfg.GetCleanupInterval(), a.cleanupTasks())
}

func (a *app) cleanupTasks() []scheduler.Task {
	retention := a.cfg.GetRefreshRetention()
	return []scheduler.Task{
		scheduler.TaskFunc("refresh_tokens", func(ctx context.Context) (int64, error) {
			return a.engines.Refresh.CleanupExpired(ctx, retention)
		}),
		scheduler.TaskFunc("sso_sessions", a.engines.SSO.CleanupExpired),
		scheduler.TaskFunc("app_sessions", a.engines.Apps.CleanupExpired),
		scheduler.TaskFunc("authorization_codes", a.engines.Codes.CleanupExpiredOrUsed),
	}
}

func (a *app) Close() {
	a.pool.Close()
}
