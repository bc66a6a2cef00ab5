package server

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaims stores the verified access token claims
const ContextKeyClaims ContextKey = "claims"

// RequireBearer verifies the access token in the Authorization header and puts
// its claims into the request context.
func (s *Server) RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.verifyBearer(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextKeyClaims, claims)))
	})
}

func (s *Server) verifyBearer(r *http.Request) (*token.Claims, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "missing bearer token")
	}
	claims, err := s.engines.Issuer.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "token has no subject")
	}
	// Account management only accepts portal tokens.
	if claims.AppScoped() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "app-scoped token cannot manage the account")
	}
	return claims, nil
}

// ClaimsFromContext returns the claims RequireBearer stored, if any.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, name, value string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.config.GetCookieDomain(),
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.config.GetCookieSecure() || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   s.config.GetCookieDomain(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.GetCookieSecure() || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
