package server

import (
	"net/http"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/logging"
)

type otpCodeRequest struct {
	Code string `json:"code"`
}

type otpResult struct {
	Valid bool `json:"valid"`
}

// bearerSubject returns the user the verified access token was issued to.
func bearerSubject(r *http.Request) (string, error) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return "", apperrors.ErrInvalidToken
	}
	return claims.Subject, nil
}

// OTPGenerate starts enrolment and returns the secret, the otpauth URI and the backup codes.
// The backup codes are only ever shown here.
func (s *Server) OTPGenerate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := bearerSubject(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		user, err := s.users.GetByID(r.Context(), userID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				err = apperrors.ErrAccountNotActive
			}
			writeError(w, r, err)
			return
		}
		if !user.Active() {
			writeError(w, r, apperrors.ErrAccountNotActive)
			return
		}

		setup, err := s.engines.OTP.GenerateSecret(r.Context(), user.ID, user.Email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, setup)
	}
}

// OTPVerify activates a pending enrolment with a first code.
func (s *Server) OTPVerify() http.HandlerFunc {
	return s.otpCheck(func(r *http.Request, userID, code string) (bool, error) {
		ok, err := s.engines.OTP.VerifyAndActivate(r.Context(), userID, code)
		if ok {
			logging.FromContext(r.Context()).Info().Str("user_id", userID).Msg("otp enabled")
		}
		return ok, err
	})
}

func (s *Server) OTPValidate() http.HandlerFunc {
	return s.otpCheck(func(r *http.Request, userID, code string) (bool, error) {
		return s.engines.OTP.ValidateLogin(r.Context(), userID, code)
	})
}

func (s *Server) OTPBackupCode() http.HandlerFunc {
	return s.otpCheck(func(r *http.Request, userID, code string) (bool, error) {
		return s.engines.OTP.ConsumeBackupCode(r.Context(), userID, code)
	})
}

func (s *Server) OTPDisable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := bearerSubject(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.engines.OTP.Disable(r.Context(), userID); err != nil {
			writeError(w, r, err)
			return
		}
		logging.FromContext(r.Context()).Info().Str("user_id", userID).Msg("otp disabled")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) otpCheck(check func(r *http.Request, userID, code string) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := bearerSubject(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req otpCodeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Code == "" {
			writeError(w, r, apperrors.Wrapf(apperrors.ErrInvalidRequest, "code is required"))
			return
		}

		ok, err := check(r, userID, req.Code)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, otpResult{Valid: ok})
	}
}
