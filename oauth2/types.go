// Package oauth2 holds the wire types of the token endpoint app backends call
// to redeem authorization codes.
package oauth2

import "errors"

// GrantType is the grant_type form field of a token request.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges a one-time code for the user's identity.
	AuthorizationCodeGrant GrantType = "authorization_code"
)

// ResponseType is what the authorization step hands back to the app.
type ResponseType string

const (
	CodeResponseType ResponseType = "code"
)

// Error codes defined by RFC 6749 section 5.2 that are not already covered by
// the application error taxonomy.
const (
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
)

var ErrUnsupportedGrantType = errors.New("grant_type must be authorization_code")

// ErrorResponse is the body of a failed token request.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}
