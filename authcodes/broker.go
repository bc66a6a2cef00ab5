package authcodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/metrics"
	"github.com/jrsteele09/go-sso-server/internal/securetoken"
)

type Broker struct {
	repo           Repo
	ttl            time.Duration
	strictRedirect bool
	nowFunc        func() time.Time
}

type BrokerOption func(*Broker)

func WithNowFunc(now func() time.Time) BrokerOption {
	return func(b *Broker) {
		b.nowFunc = now
	}
}

func WithTTL(ttl time.Duration) BrokerOption {
	return func(b *Broker) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

func WithStrictRedirect(strict bool) BrokerOption {
	return func(b *Broker) {
		b.strictRedirect = strict
	}
}

func NewBroker(repo Repo, cfg config.SessionConfig, options ...BrokerOption) (*Broker, error) {
	if repo == nil {
		return nil, fmt.Errorf("[NewBroker] auth code repo is required")
	}
	b := &Broker{
		repo:           repo,
		ttl:            cfg.GetAuthCodeTTL(),
		strictRedirect: cfg.GetStrictRedirectURI(),
		nowFunc:        time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

// TTL is how long a generated code stays redeemable.
func (b *Broker) TTL() time.Duration {
	return b.ttl
}

// Generate mints a code for (user, tenant, app). It does not check membership;
// callers run the tenant guard first.
func (b *Broker) Generate(ctx context.Context, userID, tenantID, appID, redirectURI string) (string, error) {
	if userID == "" || tenantID == "" || appID == "" {
		return "", fmt.Errorf("[Broker Generate] %w: user, tenant and app are required", apperrors.ErrInvalidRequest)
	}
	random, err := securetoken.Generate(securetoken.DefaultLength)
	if err != nil {
		return "", fmt.Errorf("[Broker Generate] %w", err)
	}
	now := b.nowFunc()
	code := &Code{
		ID:          uuid.NewString(),
		Code:        CodePrefix + random,
		UserID:      userID,
		TenantID:    tenantID,
		AppID:       appID,
		RedirectURI: redirectURI,
		ExpiresAt:   now.Add(b.ttl),
		CreatedAt:   now,
	}
	if err := b.repo.Insert(ctx, code); err != nil {
		return "", fmt.Errorf("[Broker Generate] failed to store code: %w", err)
	}
	return code.Code, nil
}

// Validate redeems a code for appID. A code succeeds at most once, including
// under concurrent redemption.
func (b *Broker) Validate(ctx context.Context, code, appID, redirectURI string) (id *Identity, err error) {
	defer func() { metrics.CodeExchange(err) }()

	if !strings.HasPrefix(code, CodePrefix) {
		return nil, apperrors.ErrInvalidCode
	}
	rec, err := b.repo.GetByCode(ctx, code)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCode
		}
		return nil, fmt.Errorf("[Broker Validate] %w", err)
	}

	if rec.Used {
		return nil, apperrors.ErrCodeAlreadyUsed
	}
	if !b.nowFunc().Before(rec.ExpiresAt) {
		if err := b.repo.Delete(ctx, rec.ID); err != nil {
			return nil, fmt.Errorf("[Broker Validate] failed to delete expired code: %w", err)
		}
		return nil, apperrors.ErrCodeExpired
	}
	if rec.AppID != appID {
		return nil, apperrors.ErrAppMismatch
	}
	if b.strictRedirect && redirectURI != "" && redirectURI != rec.RedirectURI {
		return nil, apperrors.ErrRedirectMismatch
	}

	marked, err := b.repo.MarkUsed(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("[Broker Validate] failed to mark code used: %w", err)
	}
	if !marked {
		return nil, apperrors.ErrCodeAlreadyUsed
	}

	return &Identity{
		UserID:      rec.UserID,
		TenantID:    rec.TenantID,
		AppID:       rec.AppID,
		RedirectURI: rec.RedirectURI,
	}, nil
}

func (b *Broker) CleanupExpiredOrUsed(ctx context.Context) (int64, error) {
	n, err := b.repo.DeleteExpiredOrUsed(ctx, b.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("[Broker CleanupExpiredOrUsed] %w", err)
	}
	return n, nil
}
