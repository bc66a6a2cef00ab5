package server

import (
	"net/http"

	"github.com/jrsteele09/go-sso-server/auth"
)

type appSessionRequest struct {
	Code        string `json:"code"`
	AppID       string `json:"app_id"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// CreateAppSession is the app backend helper: it redeems a code and sets the
// app_session cookie for the resulting identity.
func (s *Server) CreateAppSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appSessionRequest
		if isForm(r) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := r.ParseForm(); err == nil {
				req.Code = r.PostForm.Get("code")
				req.AppID = r.PostForm.Get("app_id")
				req.RedirectURI = r.PostForm.Get("redirect_uri")
			}
		} else if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		result, issued, err := s.auth.EstablishAppSession(r.Context(), auth.ExchangeRequest{
			Code:        req.Code,
			AppID:       req.AppID,
			RedirectURI: req.RedirectURI,
		}, requestMeta(r))
		if err != nil {
			writeError(w, r, err)
			return
		}

		s.setSessionCookie(w, r, CookieAppSession, issued.SessionToken, issued.ExpiresAt)
		writeJSON(w, http.StatusOK, result)
	}
}

// AppSession returns the identity behind the app_session cookie.
func (s *Server) AppSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := s.engines.Apps.Validate(r.Context(), sessionCookie(r, CookieAppSession))
		if err != nil {
			s.rejectSession(w, r, CookieAppSession, err)
			return
		}
		writeJSON(w, http.StatusOK, uc)
	}
}

func (s *Server) DestroyAppSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.engines.Apps.Destroy(r.Context(), sessionCookie(r, CookieAppSession)); err != nil {
			writeError(w, r, err)
			return
		}
		s.clearSessionCookie(w, r, CookieAppSession)
		w.WriteHeader(http.StatusNoContent)
	}
}
