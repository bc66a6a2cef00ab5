package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy shared by the token, session, code and OTP services.
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotActive   = errors.New("account not active")
	ErrOTPRequired        = errors.New("second factor required")
	ErrOTPAlreadyEnabled  = errors.New("second factor already enabled")

	// Token errors
	ErrInvalidToken           = errors.New("invalid token")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrRefreshTokenExpired    = errors.New("refresh token expired")
	ErrTokenReuseDetected     = errors.New("refresh token reuse detected")
	ErrKeystoreNotInitialized = errors.New("keystore not initialized")

	// Authorization code errors
	ErrInvalidCode      = errors.New("invalid authorization code")
	ErrCodeAlreadyUsed  = errors.New("authorization code already used")
	ErrCodeExpired      = errors.New("authorization code expired")
	ErrAppMismatch      = errors.New("authorization code issued to another app")
	ErrRedirectMismatch = errors.New("redirect uri mismatch")
	ErrUnknownApp       = errors.New("unknown application")

	// Tenant errors
	ErrNotTenantMember = errors.New("user is not a member of tenant")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrInternal       = errors.New("internal error")
)

type kind struct {
	err    error
	status int
	code   string
}

// Order matters only when an error wraps more than one sentinel.
var kinds = []kind{
	{ErrTokenReuseDetected, http.StatusUnauthorized, "token_reuse_detected"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{ErrAccountNotActive, http.StatusForbidden, "account_not_active"},
	{ErrOTPRequired, http.StatusUnauthorized, "otp_required"},
	{ErrOTPAlreadyEnabled, http.StatusConflict, "otp_already_enabled"},
	{ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{ErrInvalidRefreshToken, http.StatusUnauthorized, "invalid_refresh_token"},
	{ErrRefreshTokenExpired, http.StatusUnauthorized, "refresh_token_expired"},
	{ErrKeystoreNotInitialized, http.StatusServiceUnavailable, "keystore_not_initialized"},
	{ErrInvalidCode, http.StatusBadRequest, "invalid_code"},
	{ErrCodeAlreadyUsed, http.StatusBadRequest, "code_already_used"},
	{ErrCodeExpired, http.StatusBadRequest, "code_expired"},
	{ErrAppMismatch, http.StatusBadRequest, "app_mismatch"},
	{ErrRedirectMismatch, http.StatusBadRequest, "redirect_mismatch"},
	{ErrUnknownApp, http.StatusBadRequest, "unknown_app"},
	{ErrNotTenantMember, http.StatusForbidden, "not_tenant_member"},
	{ErrSessionNotFound, http.StatusUnauthorized, "session_not_found"},
	{ErrSessionExpired, http.StatusUnauthorized, "session_expired"},
	{ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{ErrNotFound, http.StatusNotFound, "not_found"},
}

// HTTPStatus maps an error from the core to the status code the HTTP boundary returns.
// Unknown errors, including datastore failures, are internal errors.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// Code returns a stable snake_case identifier for err, used in JSON error bodies and metric labels.
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal_error"
}

// FromCode returns the sentinel behind a code produced by Code, or nil when the
// code is unknown. Clients of the HTTP API use it to recover typed errors.
func FromCode(code string) error {
	for _, k := range kinds {
		if k.code == code {
			return k.err
		}
	}
	return nil
}

// IsClientError reports whether err is caused by the caller and must not be retried.
func IsClientError(err error) bool {
	status := HTTPStatus(err)
	return status >= 400 && status < 500
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
