package server

// Route path constants
const (
	// Portal auth
	RouteAuthSignin    = "/auth/signin"
	RouteAuthRefresh   = "/auth/refresh"
	RouteAuthSignout   = "/auth/signout"
	RouteAuthSession   = "/auth/session"
	RouteAuthAuthorize = "/auth/authorize"

	// Code exchange for app backends
	RouteOAuth2Token = "/oauth2/token"
	RouteAppSession  = "/app/session"

	// Second factor
	RouteOTPGenerate   = "/otp/generate"
	RouteOTPVerify     = "/otp/verify"
	RouteOTPValidate   = "/otp/validate"
	RouteOTPBackupCode = "/otp/backup-code"
	RouteOTPDisable    = "/otp/disable"

	// Discovery
	RouteWellKnownJWKS         = "/.well-known/jwks.json"
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"

	// Operations
	RouteHealthz = "/healthz"
	RouteReadyz  = "/readyz"
	RouteMetrics = "/metrics"
)

const (
	CookieSSOSession = "sso_session"
	CookieAppSession = "app_session"
)
