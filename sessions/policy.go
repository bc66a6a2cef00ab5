package sessions

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/logging"
	"github.com/jrsteele09/go-sso-server/internal/securetoken"
	"github.com/jrsteele09/go-sso-server/users"
)

type Option func(*policy)

func WithNowFunc(now func() time.Time) Option {
	return func(p *policy) {
		p.nowFunc = now
	}
}

// WithTTL overrides the configured session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(p *policy) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// policy is the sliding expiry shared by both session kinds.
type policy struct {
	ttl       time.Duration
	threshold time.Duration
	nowFunc   func() time.Time
}

func newPolicy(ttl, threshold time.Duration, options []Option) policy {
	p := policy{ttl: ttl, threshold: threshold, nowFunc: time.Now}
	for _, opt := range options {
		opt(&p)
	}
	return p
}

func (p policy) newToken() (plaintext, hash string, err error) {
	plaintext, err = securetoken.Generate(securetoken.DefaultLength)
	if err != nil {
		return "", "", err
	}
	return plaintext, securetoken.Hash(plaintext), nil
}

// expired reports whether a session expiring at expiresAt is unusable at now.
func (p policy) expired(now, expiresAt time.Time) bool {
	return !now.Before(expiresAt)
}

// extend returns the expiry after a validation at now. A session is only extended
// by a full window once its remaining lifetime drops below the threshold.
func (p policy) extend(now, expiresAt time.Time) time.Time {
	if expiresAt.Sub(now) < p.threshold {
		return now.Add(p.ttl)
	}
	return expiresAt
}

// loadActiveUser re-reads the user on every validation.
func loadActiveUser(ctx context.Context, repo users.UserRepo, userID string) (*users.User, error) {
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrAccountNotActive
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Active() {
		logging.FromContext(ctx).Info().Str("user_id", user.ID).Str("status", string(user.Status)).Msg("session rejected for inactive account")
		return nil, apperrors.ErrAccountNotActive
	}
	return user, nil
}
