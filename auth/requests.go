package auth

import (
	"github.com/jrsteele09/go-sso-server/authcodes"
	"github.com/jrsteele09/go-sso-server/sessions"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	"github.com/jrsteele09/go-sso-server/users"
)

// RequestMeta is the caller's address and user agent, recorded on tokens and sessions.
type RequestMeta struct {
	IP        string
	UserAgent string
}

func (m RequestMeta) refresh() refresh.Meta {
	return refresh.Meta{IP: m.IP, UserAgent: m.UserAgent}
}

func (m RequestMeta) session() sessions.Meta {
	return sessions.Meta{IP: m.IP, UserAgent: m.UserAgent}
}

type SignInRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	OTPCode    string `json:"otp_code,omitempty"`
	BackupCode string `json:"backup_code,omitempty"`
	TenantID   string `json:"tenant_id,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
}

type SignInResult struct {
	Tokens  *refresh.Pair
	Session *sessions.Issued
	User    *users.User
}

type SignOutRequest struct {
	RefreshToken string
	SessionToken string
	// UserID set together with All revokes every refresh token and session the user holds.
	UserID string
	All    bool
}

type AuthorizeRequest struct {
	TenantID    string `json:"tenant_id"`
	AppID       string `json:"app_id"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// Handoff is what the portal sends the browser to the app with.
type Handoff struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri,omitempty"`
	ExpiresIn   int64  `json:"expires_in"`
}

type ExchangeRequest struct {
	Code        string
	AppID       string
	RedirectURI string
}

// ExchangeResult is the identity an app backend receives for a valid code,
// along with an access token scoped to the app and tenant.
type ExchangeResult struct {
	authcodes.Identity
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
