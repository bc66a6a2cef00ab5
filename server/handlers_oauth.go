package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-sso-server/auth"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/oauth2"
)

type openIDConfiguration struct {
	Issuer                           string   `json:"issuer"`
	JWKSURI                          string   `json:"jwks_uri"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	GrantTypesSupported              []string `json:"grant_types_supported"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethods         []string `json:"token_endpoint_auth_methods_supported"`
}

// JWKS publishes the active signing key. It answers 503 until a key is loaded.
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.engines.Issuer.PublishJWKS()
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		writeJSON(w, http.StatusOK, jwks)
	}
}

// WellKnownOpenIDConfig lets OIDC libraries locate the JWKS and token endpoint.
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base := strings.TrimRight(s.config.GetBaseURL(), "/")
		issuer := s.engines.Issuer.Issuer()
		if issuer == "" {
			issuer = base
		}
		writeJSON(w, http.StatusOK, openIDConfiguration{
			Issuer:                           issuer,
			JWKSURI:                          base + RouteWellKnownJWKS,
			TokenEndpoint:                    base + RouteOAuth2Token,
			GrantTypesSupported:              []string{string(oauth2.AuthorizationCodeGrant)},
			ResponseTypesSupported:           []string{string(oauth2.CodeResponseType)},
			SubjectTypesSupported:            []string{"public"},
			IDTokenSigningAlgValuesSupported: []string{"RS256"},
			TokenEndpointAuthMethods:         []string{"client_secret_post", "client_secret_basic"},
		})
	}
}

// Token redeems an authorization code server to server. client_id is the app id
// and may arrive in the form or as the basic auth username.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		req, err := oauth2.ParseTokenRequest(r)
		if err != nil {
			writeError(w, r, apperrors.Wrapf(apperrors.ErrInvalidRequest, "%s", err.Error()))
			return
		}
		if err := req.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
				Error:       oauth2.ErrorCodeUnsupportedGrantType,
				Description: err.Error(),
			})
			return
		}

		result, err := s.auth.Exchange(r.Context(), auth.ExchangeRequest{
			Code:        req.Code,
			AppID:       req.ClientID,
			RedirectURI: req.RedirectURI,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, oauth2.TokenResponse{
			AccessToken: result.AccessToken,
			TokenType:   result.TokenType,
			ExpiresIn:   result.ExpiresIn,
			UserID:      result.UserID,
			TenantID:    result.TenantID,
			AppID:       result.AppID,
			Role:        result.Role,
			Email:       result.Email,
			Name:        result.Name,
		})
	}
}
