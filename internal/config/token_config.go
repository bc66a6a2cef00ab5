package config

import "time"

const (
	jwtIssuerVar         = "JWT_ISSUER"
	jwtAudienceVar       = "JWT_AUDIENCE"
	jwtKeyIDVar          = "JWT_KID"
	jwtPrivateKeyFileVar = "JWT_PRIVATE_KEY_FILE"
	jwtKeyBitsVar        = "JWT_KEY_BITS"
	accessTokenTTLVar    = "ACCESS_TOKEN_TTL"
	refreshTokenTTLVar   = "REFRESH_TOKEN_TTL"
	refreshRetentionVar  = "REFRESH_RETENTION"
)

type TokenConfig interface {
	GetIssuer() string
	GetAudience() string
	GetKeyID() string
	GetPrivateKeyFile() string
	GetKeyBits() int
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetRefreshRetention() time.Duration
	GetRefreshTokenLength() int
}

var _ TokenConfig = mainConfig{}

// GetIssuer falls back to the base URL when JWT_ISSUER is unset.
func (c mainConfig) GetIssuer() string {
	if issuer := c.v.GetString(jwtIssuerVar); issuer != "" {
		return issuer
	}
	return c.GetBaseURL()
}

func (c mainConfig) GetAudience() string {
	return c.v.GetString(jwtAudienceVar)
}

func (c mainConfig) GetKeyID() string {
	return c.v.GetString(jwtKeyIDVar)
}

// GetPrivateKeyFile returns the PEM file holding the signing key. Empty means an
// ephemeral key is generated at startup.
func (c mainConfig) GetPrivateKeyFile() string {
	return c.v.GetString(jwtPrivateKeyFileVar)
}

func (c mainConfig) GetKeyBits() int {
	return c.v.GetInt(jwtKeyBitsVar)
}

func (c mainConfig) GetAccessTokenTTL() time.Duration {
	return c.duration(accessTokenTTLVar, 15*time.Minute)
}

func (c mainConfig) GetRefreshTokenTTL() time.Duration {
	return c.duration(refreshTokenTTLVar, 7*24*time.Hour)
}

// GetRefreshRetention is how long expired refresh records are kept before the cleanup sweep removes them.
func (c mainConfig) GetRefreshRetention() time.Duration {
	return c.duration(refreshRetentionVar, 30*24*time.Hour)
}

func (mainConfig) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}
