package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegisterExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler, err := metrics.Register(reg)
	require.NoError(t, err)

	// Registering again is tolerated.
	_, err = metrics.Register(reg)
	require.NoError(t, err)

	metrics.RefreshRotation(nil)
	metrics.RefreshRotation(apperrors.ErrTokenReuseDetected)
	metrics.CodeExchange(apperrors.ErrCodeAlreadyUsed)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	require.Contains(t, string(body), `sso_refresh_rotations_total{result="token_reuse_detected"}`)
	require.Contains(t, string(body), "sso_refresh_token_reuse_detected_total")
	require.Contains(t, string(body), `sso_auth_code_exchanges_total{result="code_already_used"}`)
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler, err := metrics.Register(reg)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Instrument)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/secret-token-value", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	require.Contains(t, string(body), `route="/items/{id}"`)
	require.NotContains(t, string(body), "secret-token-value")
}
