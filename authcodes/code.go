// Package authcodes mints and redeems the one-time codes that hand an
// authenticated identity from the SSO portal to an app backend.
package authcodes

import (
	"context"
	"time"
)

const CodePrefix = "ac_"

// Code is ISSUED until it is either marked used or deleted on expiry. Neither
// state transitions back.
type Code struct {
	ID          string
	Code        string
	UserID      string
	TenantID    string
	AppID       string
	RedirectURI string
	Used        bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Identity is the snapshot handed to the app backend after a successful exchange.
type Identity struct {
	UserID      string `json:"user_id"`
	TenantID    string `json:"tenant_id"`
	AppID       string `json:"app_id"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// Repo returns errors.ErrNotFound for unknown codes.
type Repo interface {
	Insert(ctx context.Context, code *Code) error
	GetByCode(ctx context.Context, code string) (*Code, error)

	// MarkUsed flips used to true only if it is currently false and reports
	// whether this call made the change.
	MarkUsed(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteExpiredOrUsed(ctx context.Context, now time.Time) (int64, error)
}
