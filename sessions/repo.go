package sessions

import (
	"context"
	"time"
)

// SSORepo stores portal sessions. Lookups return errors.ErrNotFound when nothing matches.
// Deletes of unknown sessions are not errors.
type SSORepo interface {
	Insert(ctx context.Context, s *SSOSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*SSOSession, error)
	Touch(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AppRepo stores app sessions, with the same contract as SSORepo.
type AppRepo interface {
	Insert(ctx context.Context, s *AppSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*AppSession, error)
	Touch(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteForTenantApp(ctx context.Context, userID, appID, tenantID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
