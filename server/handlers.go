package server

import (
	"net/http"

	"github.com/jrsteele09/go-sso-server/auth"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/logging"
	"github.com/jrsteele09/go-sso-server/token/refresh"
)

type signInResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	UserID       string `json:"user_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type signOutRequest struct {
	RefreshToken string `json:"refresh_token"`
	All          bool   `json:"all"`
}

// SignIn checks credentials, returns a token pair and sets the sso_session cookie.
func (s *Server) SignIn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignInRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		result, err := s.auth.SignIn(r.Context(), req, requestMeta(r))
		if err != nil {
			writeError(w, r, err)
			return
		}

		s.setSessionCookie(w, r, CookieSSOSession, result.Session.SessionToken, result.Session.ExpiresAt)
		writeJSON(w, http.StatusOK, signInResponse{
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
			ExpiresIn:    result.Tokens.ExpiresIn,
			TokenType:    result.Tokens.TokenType,
			UserID:       result.User.ID,
		})
	}
}

// Refresh rotates a refresh token.
func (s *Server) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		meta := refresh.Meta{IP: clientIP(r), UserAgent: r.UserAgent()}
		pair, err := s.engines.Refresh.Rotate(r.Context(), req.RefreshToken, meta)
		if err != nil {
			if apperrors.IsClientError(err) {
				s.clearSessionCookie(w, r, CookieSSOSession)
			}
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// SignOut revokes the presented refresh token and ends the SSO session. With
// all=true it needs a bearer token and signs the user out everywhere.
func (s *Server) SignOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signOutRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		out := auth.SignOutRequest{
			RefreshToken: req.RefreshToken,
			SessionToken: sessionCookie(r, CookieSSOSession),
			All:          req.All,
		}
		if req.All {
			claims, err := s.verifyBearer(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			out.UserID = claims.Subject
		}

		if err := s.auth.SignOut(r.Context(), out); err != nil {
			writeError(w, r, err)
			return
		}
		s.clearSessionCookie(w, r, CookieSSOSession)
		w.WriteHeader(http.StatusNoContent)
	}
}

// SSOSession returns the user behind the sso_session cookie.
func (s *Server) SSOSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := s.engines.SSO.Validate(r.Context(), sessionCookie(r, CookieSSOSession))
		if err != nil {
			s.rejectSession(w, r, CookieSSOSession, err)
			return
		}
		writeJSON(w, http.StatusOK, uc)
	}
}

// Authorize is the portal handoff: it mints a one-time code for an app in a
// tenant the signed-in user belongs to.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.AuthorizeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		handoff, err := s.auth.Authorize(r.Context(), sessionCookie(r, CookieSSOSession), req)
		if err != nil {
			if isSessionFailure(err) {
				s.rejectSession(w, r, CookieSSOSession, err)
				return
			}
			writeError(w, r, err)
			return
		}

		logging.FromContext(r.Context()).Info().
			Str("tenant_id", req.TenantID).
			Str("app_id", req.AppID).
			Msg("authorization code issued")
		writeJSON(w, http.StatusOK, handoff)
	}
}

// rejectSession clears the cookie for a session that failed validation.
func (s *Server) rejectSession(w http.ResponseWriter, r *http.Request, cookie string, err error) {
	if isSessionFailure(err) {
		s.clearSessionCookie(w, r, cookie)
	}
	writeError(w, r, err)
}

func isSessionFailure(err error) bool {
	return apperrors.Is(err, apperrors.ErrSessionNotFound) ||
		apperrors.Is(err, apperrors.ErrSessionExpired) ||
		apperrors.Is(err, apperrors.ErrAccountNotActive)
}
