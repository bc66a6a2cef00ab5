package auth

import (
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

// Validator holds the request shape checks run before any repository access.
// Every failure wraps errors.ErrInvalidRequest.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials validates login credentials
func (v *Validator) ValidateUserCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email is required")
	}

	// Basic email format validation
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return invalid("invalid email format")
	}

	if password == "" {
		return invalid("password is required")
	}
	return nil
}

// ValidateSecondFactor rejects requests that carry both an OTP code and a backup code.
func (v *Validator) ValidateSecondFactor(otpCode, backupCode string) error {
	if strings.TrimSpace(otpCode) != "" && strings.TrimSpace(backupCode) != "" {
		return invalid("provide either otp_code or backup_code, not both")
	}
	return nil
}

func (v *Validator) ValidateAuthorizeRequest(req AuthorizeRequest) error {
	if strings.TrimSpace(req.TenantID) == "" {
		return invalid("tenant_id is required")
	}
	if strings.TrimSpace(req.AppID) == "" {
		return invalid("app_id is required")
	}
	if req.RedirectURI != "" {
		if err := ValidateRedirectURI(req.RedirectURI); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) ValidateExchangeRequest(req ExchangeRequest) error {
	if strings.TrimSpace(req.Code) == "" {
		return invalid("code is required")
	}
	if strings.TrimSpace(req.AppID) == "" {
		return invalid("app_id is required")
	}
	return nil
}

// ValidateRedirectURI validates redirect URI format
func ValidateRedirectURI(uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return invalid("redirect_uri is required")
	}

	// Must start with http:// or https://
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return invalid("redirect_uri must use http or https scheme")
	}

	// Should not contain fragments
	if strings.Contains(uri, "#") {
		return invalid("redirect_uri must not contain fragments")
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidRequest, msg)
}
