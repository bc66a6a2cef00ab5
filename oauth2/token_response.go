package oauth2

// TokenResponse is returned from the token endpoint for a redeemed code. The
// RFC 6749 fields come first; the identity fields are extras that
// golang.org/x/oauth2 clients read through Token.Extra.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`

	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	AppID    string `json:"app_id"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
}
