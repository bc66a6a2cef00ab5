package oauth2

import (
	"fmt"
	"net/http"
	"strings"
)

// TokenRequest holds the form fields of an authorization_code token request.
type TokenRequest struct {
	GrantType GrantType

	// ClientID is the app id. It is read from the form, or from the basic auth
	// username when the form omits it.
	ClientID string

	// Code is the one-time code the portal handed to the browser.
	Code string

	// RedirectURI, when present, must match the one the code was minted for.
	RedirectURI string
}

// ParseTokenRequest reads a token request from an already size-limited body.
func ParseTokenRequest(r *http.Request) (*TokenRequest, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("malformed form body: %w", err)
	}

	tr := &TokenRequest{
		GrantType:   GrantType(strings.TrimSpace(r.PostForm.Get("grant_type"))),
		ClientID:    strings.TrimSpace(r.PostForm.Get("client_id")),
		Code:        strings.TrimSpace(r.PostForm.Get("code")),
		RedirectURI: strings.TrimSpace(r.PostForm.Get("redirect_uri")),
	}
	if tr.ClientID == "" {
		if user, _, ok := r.BasicAuth(); ok {
			tr.ClientID = user
		}
	}
	return tr, nil
}

// Validate checks the grant type. Missing code and client_id are left to the
// exchange, which reports them with the application error codes.
func (tr *TokenRequest) Validate() error {
	if tr.GrantType != AuthorizationCodeGrant {
		return ErrUnsupportedGrantType
	}
	return nil
}
