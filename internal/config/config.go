package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	SessionConfig
	SecurityConfig
	DatabaseConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	v *viper.Viper
}

// New loads a .env file when one is present and reads the rest from the environment.
func New() Config {
	_ = godotenv.Load()
	return newConfig(nil)
}

// NewWithOverrides builds a Config whose values are taken from overrides before the
// environment. Intended for tests and the CLI flags that shadow env vars.
func NewWithOverrides(overrides map[string]string) Config {
	return newConfig(overrides)
}

func newConfig(overrides map[string]string) mainConfig {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	for key, value := range overrides {
		v.Set(key, value)
	}
	return mainConfig{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(portEnvVar, "8080")
	v.SetDefault(appNameVar, "Go SSO Server")
	v.SetDefault(envVar, "DEV")
	v.SetDefault(logLevelVar, "info")
	v.SetDefault(baseURLVar, "http://localhost:8080")

	v.SetDefault(allowedOriginsVar, "")

	v.SetDefault(jwtIssuerVar, "")
	v.SetDefault(jwtAudienceVar, "sso-apps")
	v.SetDefault(jwtKeyIDVar, "sso-key-1")
	v.SetDefault(jwtPrivateKeyFileVar, "")
	v.SetDefault(jwtKeyBitsVar, 2048)
	v.SetDefault(accessTokenTTLVar, "15m")
	v.SetDefault(refreshTokenTTLVar, "168h")
	v.SetDefault(refreshRetentionVar, "720h")

	v.SetDefault(ssoSessionTTLVar, "24h")
	v.SetDefault(appSessionTTLVar, "8h")
	v.SetDefault(sessionRefreshThresholdVar, "1h")
	v.SetDefault(authCodeTTLVar, "5m")
	v.SetDefault(strictRedirectVar, true)
	v.SetDefault(cookieDomainVar, "")
	v.SetDefault(cookieSecureVar, false)
	v.SetDefault(cleanupIntervalVar, "10m")

	v.SetDefault(otpIssuerVar, "Go SSO Server")
	v.SetDefault(rateLimitPerMinVar, 30)

	v.SetDefault(databaseURLVar, "")
	v.SetDefault(dbMaxConnsVar, 10)
}

func (c mainConfig) duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(c.v.GetString(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
