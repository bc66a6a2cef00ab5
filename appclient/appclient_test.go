package appclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-sso-server/appclient"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/token/keys"
	"github.com/stretchr/testify/require"
)

const (
	issuer          = "https://sso.example.com"
	audience        = "sso-apps"
	testAppID       = "crm"
	testRedirectURI = "https://crm.example.com/callback"
	testCode        = "ac_valid"
)

type testFixture struct {
	kp     *keys.KeyPair
	issuer *token.Issuer
	srv    *httptest.Server
	client *appclient.Client
	mu     sync.Mutex
	forms  []map[string]string
}

func (f *testFixture) receivedForms() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.forms...)
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	kp, err := keys.GenerateRSAKeyPair("test-kid", 2048)
	require.NoError(t, err)
	f := &testFixture{kp: kp, issuer: token.NewIssuer(issuer, audience)}
	require.NoError(t, f.issuer.LoadKey(kp))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		jwks, err := f.issuer.PublishJWKS()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	})
	mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.mu.Lock()
		f.forms = append(f.forms, form)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if form["code"] != testCode {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "code_already_used",
				"error_description": "authorization code already used",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at",
			"token_type":   "Bearer",
			"expires_in":   900,
			"user_id":      "U1",
			"tenant_id":    "T1",
			"app_id":       testAppID,
			"role":         "admin",
			"email":        "john.doe@example.com",
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	f.client, err = appclient.New(context.Background(), appclient.Config{
		BaseURL:     f.srv.URL,
		Issuer:      issuer,
		Audience:    audience,
		AppID:       testAppID,
		RedirectURI: testRedirectURI,
		HTTPClient:  f.srv.Client(),
	})
	require.NoError(t, err)
	return f
}

func TestNew_Validation(t *testing.T) {
	_, err := appclient.New(context.Background(), appclient.Config{AppID: testAppID})
	require.Error(t, err)
	_, err = appclient.New(context.Background(), appclient.Config{BaseURL: "https://sso.example.com"})
	require.Error(t, err)
}

func TestExchange(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	id, err := f.client.Exchange(ctx, testCode)
	require.NoError(t, err)
	require.Equal(t, "U1", id.UserID)
	require.Equal(t, "T1", id.TenantID)
	require.Equal(t, testAppID, id.AppID)
	require.Equal(t, "admin", id.Role)
	require.Equal(t, "at", id.AccessToken)
	require.False(t, id.Expiry.IsZero())

	forms := f.receivedForms()
	require.Len(t, forms, 1)
	require.Equal(t, "authorization_code", forms[0]["grant_type"])
	require.Equal(t, testCode, forms[0]["code"])
	require.Equal(t, testAppID, forms[0]["client_id"])
	require.Equal(t, testRedirectURI, forms[0]["redirect_uri"])

	_, err = f.client.Exchange(ctx, "ac_spent")
	require.ErrorIs(t, err, apperrors.ErrCodeAlreadyUsed)
}

func TestVerify(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	raw, err := f.issuer.Issue(token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "U1"},
		Email:            "john.doe@example.com",
		TenantID:         "T1",
		Role:             "admin",
		ClientID:         testAppID,
	}, 10*time.Minute)
	require.NoError(t, err)

	claims, err := f.client.Verify(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, "U1", claims.Subject)
	require.Equal(t, "T1", claims.TenantID)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, testAppID, claims.ClientID)
	require.Contains(t, claims.Audience, audience)

	t.Run("foreign audience", func(t *testing.T) {
		other := token.NewIssuer(issuer, "other-audience")
		require.NoError(t, other.LoadKey(f.kp))

		foreign, err := other.Issue(token.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "U1"}}, time.Minute)
		require.NoError(t, err)
		_, err = f.client.Verify(ctx, foreign)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("unknown signing key", func(t *testing.T) {
		kp, err := keys.GenerateRSAKeyPair("other-kid", 2048)
		require.NoError(t, err)
		rogue := token.NewIssuer(issuer, audience)
		require.NoError(t, rogue.LoadKey(kp))

		forged, err := rogue.Issue(token.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "U1"}}, time.Minute)
		require.NoError(t, err)
		_, err = f.client.Verify(ctx, forged)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := f.client.Verify(ctx, raw+"x")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}
