package config

const (
	otpIssuerVar       = "OTP_ISSUER"
	rateLimitPerMinVar = "RATE_LIMIT_PER_MIN"
)

type SecurityConfig interface {
	GetOTPIssuer() string
	GetRateLimitPerMinute() int
}

var _ SecurityConfig = mainConfig{}

// GetOTPIssuer is the issuer name shown in authenticator apps.
func (c mainConfig) GetOTPIssuer() string {
	return c.v.GetString(otpIssuerVar)
}

// GetRateLimitPerMinute applies per client IP to signin and OTP routes. Zero disables limiting.
func (c mainConfig) GetRateLimitPerMinute() int {
	return c.v.GetInt(rateLimitPerMinVar)
}
