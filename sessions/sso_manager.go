package sessions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/metrics"
	"github.com/jrsteele09/go-sso-server/internal/securetoken"
	"github.com/jrsteele09/go-sso-server/users"
)

// SSOManager owns the portal session behind the sso_session cookie.
type SSOManager struct {
	repo   SSORepo
	users  users.UserRepo
	policy policy
}

func NewSSOManager(repo SSORepo, userRepo users.UserRepo, cfg config.SessionConfig, options ...Option) (*SSOManager, error) {
	if repo == nil || userRepo == nil {
		return nil, fmt.Errorf("[NewSSOManager] session and user repos are required")
	}
	return &SSOManager{
		repo:   repo,
		users:  userRepo,
		policy: newPolicy(cfg.GetSSOSessionTTL(), cfg.GetSessionRefreshThreshold(), options),
	}, nil
}

func (m *SSOManager) Create(ctx context.Context, userID string, meta Meta) (*Issued, error) {
	plaintext, hash, err := m.policy.newToken()
	if err != nil {
		return nil, fmt.Errorf("[SSOManager Create] %w", err)
	}
	now := m.policy.nowFunc()
	s := &SSOSession{
		ID:             uuid.NewString(),
		TokenHash:      hash,
		UserID:         userID,
		IP:             meta.IP,
		UserAgent:      meta.UserAgent,
		ExpiresAt:      now.Add(m.policy.ttl),
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := m.repo.Insert(ctx, s); err != nil {
		return nil, fmt.Errorf("[SSOManager Create] failed to store session: %w", err)
	}
	return &Issued{SessionToken: plaintext, ExpiresAt: s.ExpiresAt}, nil
}

// Validate resolves a session token to the current user. Expired sessions are
// deleted and report ErrSessionExpired once; afterwards they are not found.
func (m *SSOManager) Validate(ctx context.Context, sessionToken string) (uc *UserContext, err error) {
	defer func() { metrics.SessionValidation(KindSSO, err) }()

	if sessionToken == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	s, err := m.repo.GetByTokenHash(ctx, securetoken.Hash(sessionToken))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("[SSOManager Validate] %w", err)
	}

	now := m.policy.nowFunc()
	if m.policy.expired(now, s.ExpiresAt) {
		if err := m.repo.DeleteByID(ctx, s.ID); err != nil {
			return nil, fmt.Errorf("[SSOManager Validate] failed to delete expired session: %w", err)
		}
		return nil, apperrors.ErrSessionExpired
	}

	user, err := loadActiveUser(ctx, m.users, s.UserID)
	if err != nil {
		return nil, err
	}

	expiresAt := m.policy.extend(now, s.ExpiresAt)
	if err := m.repo.Touch(ctx, s.ID, now, expiresAt); err != nil {
		return nil, fmt.Errorf("[SSOManager Validate] failed to touch session: %w", err)
	}

	return &UserContext{
		SessionID: s.ID,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		ExpiresAt: expiresAt,
	}, nil
}

func (m *SSOManager) Destroy(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	if err := m.repo.DeleteByTokenHash(ctx, securetoken.Hash(sessionToken)); err != nil {
		return fmt.Errorf("[SSOManager Destroy] %w", err)
	}
	return nil
}

func (m *SSOManager) DestroyByID(ctx context.Context, id string) error {
	if err := m.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("[SSOManager DestroyByID] %w", err)
	}
	return nil
}

func (m *SSOManager) DestroyAllForUser(ctx context.Context, userID string) error {
	if _, err := m.repo.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("[SSOManager DestroyAllForUser] %w", err)
	}
	return nil
}

func (m *SSOManager) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, m.policy.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("[SSOManager CleanupExpired] %w", err)
	}
	return n, nil
}
