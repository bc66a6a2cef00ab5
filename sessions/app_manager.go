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

// AppManager owns per-app sessions behind the app_session cookie. A user may hold
// one for every (app, tenant) pair at once.
type AppManager struct {
	repo   AppRepo
	users  users.UserRepo
	policy policy
}

func NewAppManager(repo AppRepo, userRepo users.UserRepo, cfg config.SessionConfig, options ...Option) (*AppManager, error) {
	if repo == nil || userRepo == nil {
		return nil, fmt.Errorf("[NewAppManager] session and user repos are required")
	}
	return &AppManager{
		repo:   repo,
		users:  userRepo,
		policy: newPolicy(cfg.GetAppSessionTTL(), cfg.GetSessionRefreshThreshold(), options),
	}, nil
}

func (m *AppManager) Create(ctx context.Context, appID, tenantID, userID, role string, meta Meta) (*Issued, error) {
	if appID == "" || tenantID == "" || userID == "" {
		return nil, fmt.Errorf("[AppManager Create] %w: app, tenant and user are required", apperrors.ErrInvalidRequest)
	}
	plaintext, hash, err := m.policy.newToken()
	if err != nil {
		return nil, fmt.Errorf("[AppManager Create] %w", err)
	}
	now := m.policy.nowFunc()
	s := &AppSession{
		ID:             uuid.NewString(),
		TokenHash:      hash,
		AppID:          appID,
		UserID:         userID,
		TenantID:       tenantID,
		Role:           role,
		IP:             meta.IP,
		UserAgent:      meta.UserAgent,
		ExpiresAt:      now.Add(m.policy.ttl),
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := m.repo.Insert(ctx, s); err != nil {
		return nil, fmt.Errorf("[AppManager Create] failed to store session: %w", err)
	}
	return &Issued{SessionToken: plaintext, ExpiresAt: s.ExpiresAt}, nil
}

func (m *AppManager) Validate(ctx context.Context, sessionToken string) (uc *UserContext, err error) {
	defer func() { metrics.SessionValidation(KindApp, err) }()

	if sessionToken == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	s, err := m.repo.GetByTokenHash(ctx, securetoken.Hash(sessionToken))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("[AppManager Validate] %w", err)
	}

	now := m.policy.nowFunc()
	if m.policy.expired(now, s.ExpiresAt) {
		if err := m.repo.DeleteByID(ctx, s.ID); err != nil {
			return nil, fmt.Errorf("[AppManager Validate] failed to delete expired session: %w", err)
		}
		return nil, apperrors.ErrSessionExpired
	}

	user, err := loadActiveUser(ctx, m.users, s.UserID)
	if err != nil {
		return nil, err
	}

	expiresAt := m.policy.extend(now, s.ExpiresAt)
	if err := m.repo.Touch(ctx, s.ID, now, expiresAt); err != nil {
		return nil, fmt.Errorf("[AppManager Validate] failed to touch session: %w", err)
	}

	return &UserContext{
		SessionID: s.ID,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AppID:     s.AppID,
		TenantID:  s.TenantID,
		Role:      s.Role,
		ExpiresAt: expiresAt,
	}, nil
}

func (m *AppManager) Destroy(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	if err := m.repo.DeleteByTokenHash(ctx, securetoken.Hash(sessionToken)); err != nil {
		return fmt.Errorf("[AppManager Destroy] %w", err)
	}
	return nil
}

func (m *AppManager) DestroyByID(ctx context.Context, id string) error {
	if err := m.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("[AppManager DestroyByID] %w", err)
	}
	return nil
}

func (m *AppManager) DestroyAllForUser(ctx context.Context, userID string) error {
	if _, err := m.repo.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("[AppManager DestroyAllForUser] %w", err)
	}
	return nil
}

// DestroyForTenantApp ends the user's sessions for one app and tenant, leaving
// their other app sessions in place.
func (m *AppManager) DestroyForTenantApp(ctx context.Context, userID, appID, tenantID string) error {
	if _, err := m.repo.DeleteForTenantApp(ctx, userID, appID, tenantID); err != nil {
		return fmt.Errorf("[AppManager DestroyForTenantApp] %w", err)
	}
	return nil
}

func (m *AppManager) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, m.policy.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("[AppManager CleanupExpired] %w", err)
	}
	return n, nil
}
