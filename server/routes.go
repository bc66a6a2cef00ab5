package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-sso-server/internal/metrics"
)

func (s *Server) initRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(s.SecurityHeadersMiddleware)
	r.Use(s.CorsMiddleware)

	r.Get(RouteHealthz, s.Healthz())
	r.Get(RouteReadyz, s.Readyz())
	r.Handle(RouteMetrics, s.metrics)

	r.Get(RouteWellKnownJWKS, s.JWKS())
	r.Get(RouteWellKnownOpenIDConfig, s.WellKnownOpenIDConfig())

	r.Group(func(r chi.Router) {
		r.Use(s.RateLimitMiddleware)
		r.Post(RouteAuthSignin, s.SignIn())
		r.Post(RouteAuthRefresh, s.Refresh())
		r.Post(RouteOAuth2Token, s.Token())
		r.Post(RouteAppSession, s.CreateAppSession())
	})

	r.Post(RouteAuthSignout, s.SignOut())
	r.Get(RouteAuthSession, s.SSOSession())
	r.Post(RouteAuthAuthorize, s.Authorize())

	r.Get(RouteAppSession, s.AppSession())
	r.Delete(RouteAppSession, s.DestroyAppSession())

	r.Group(func(r chi.Router) {
		r.Use(s.RequireBearer)
		r.Use(s.RateLimitMiddleware)
		r.Post(RouteOTPGenerate, s.OTPGenerate())
		r.Post(RouteOTPVerify, s.OTPVerify())
		r.Post(RouteOTPValidate, s.OTPValidate())
		r.Post(RouteOTPBackupCode, s.OTPBackupCode())
		r.Post(RouteOTPDisable, s.OTPDisable())
	})

	s.router = r
}
