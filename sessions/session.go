package sessions

import (
	"time"
)

const (
	KindSSO = "sso"
	KindApp = "app"
)

// SSOSession is the portal-wide session. Only the hash of the session token is stored.
type SSOSession struct {
	ID             string
	TokenHash      string
	UserID         string
	IP             string
	UserAgent      string
	ExpiresAt      time.Time
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// AppSession is scoped to one (app, tenant) pair. Role is a snapshot taken at
// creation and is not re-read on validation.
type AppSession struct {
	ID             string
	TokenHash      string
	AppID          string
	UserID         string
	TenantID       string
	Role           string
	IP             string
	UserAgent      string
	ExpiresAt      time.Time
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// Meta is request metadata recorded against new sessions.
type Meta struct {
	IP        string
	UserAgent string
}

// Issued is returned once at creation. SessionToken is not recoverable afterwards.
type Issued struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UserContext is the snapshot a successful validation attaches to the request.
type UserContext struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	AppID     string    `json:"app_id,omitempty"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}
