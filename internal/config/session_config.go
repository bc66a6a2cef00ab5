package config

import "time"

const (
	ssoSessionTTLVar           = "SSO_SESSION_TTL"
	appSessionTTLVar           = "APP_SESSION_TTL"
	sessionRefreshThresholdVar = "SESSION_REFRESH_THRESHOLD"
	authCodeTTLVar             = "AUTH_CODE_TTL"
	strictRedirectVar          = "STRICT_REDIRECT_URI"
	cookieDomainVar            = "COOKIE_DOMAIN"
	cookieSecureVar            = "COOKIE_SECURE"
	cleanupIntervalVar         = "CLEANUP_INTERVAL"
)

type SessionConfig interface {
	GetSSOSessionTTL() time.Duration
	GetAppSessionTTL() time.Duration
	GetSessionRefreshThreshold() time.Duration
	GetAuthCodeTTL() time.Duration
	GetStrictRedirectURI() bool
	GetCookieDomain() string
	GetCookieSecure() bool
	GetCleanupInterval() time.Duration
}

var _ SessionConfig = mainConfig{}

func (c mainConfig) GetSSOSessionTTL() time.Duration {
	return c.duration(ssoSessionTTLVar, 24*time.Hour)
}

func (c mainConfig) GetAppSessionTTL() time.Duration {
	return c.duration(appSessionTTLVar, 8*time.Hour)
}

// GetSessionRefreshThreshold is the remaining lifetime below which a validated session is extended.
func (c mainConfig) GetSessionRefreshThreshold() time.Duration {
	return c.duration(sessionRefreshThresholdVar, time.Hour)
}

func (c mainConfig) GetAuthCodeTTL() time.Duration {
	return c.duration(authCodeTTLVar, 5*time.Minute)
}

func (c mainConfig) GetStrictRedirectURI() bool {
	return c.v.GetBool(strictRedirectVar)
}

func (c mainConfig) GetCookieDomain() string {
	return c.v.GetString(cookieDomainVar)
}

func (c mainConfig) GetCookieSecure() bool {
	return c.v.GetBool(cookieSecureVar)
}

func (c mainConfig) GetCleanupInterval() time.Duration {
	return c.duration(cleanupIntervalVar, 10*time.Minute)
}
