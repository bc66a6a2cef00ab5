package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests processed, by route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	signinsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_signins_total",
		Help: "Signin attempts by result.",
	}, []string{"result"})

	refreshRotationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_refresh_rotations_total",
		Help: "Refresh token rotations by result.",
	}, []string{"result"})

	tokenReuseTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sso_refresh_token_reuse_detected_total",
		Help: "Presentations of an already rotated refresh token. Each one revokes a chain.",
	})

	codeExchangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_auth_code_exchanges_total",
		Help: "Authorization code validations by result.",
	}, []string{"result"})

	sessionValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_session_validations_total",
		Help: "Session validations by session kind and result.",
	}, []string{"kind", "result"})

	otpChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_otp_checks_total",
		Help: "Second factor checks by kind and outcome.",
	}, []string{"kind", "result"})

	cleanupDeletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_cleanup_deleted_total",
		Help: "Records removed by scheduled cleanup tasks.",
	}, []string{"task"})
)

var collectors = []prometheus.Collector{
	httpRequestsTotal,
	httpRequestDuration,
	signinsTotal,
	refreshRotationsTotal,
	tokenReuseTotal,
	codeExchangesTotal,
	sessionValidationsTotal,
	otpChecksTotal,
	cleanupDeletedTotal,
}

// Register adds every collector to reg and returns the /metrics handler.
// Registering twice is not an error.
func Register(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}
	if gatherer, ok := reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}), nil
	}
	return promhttp.Handler(), nil
}

func result(err error) string {
	return apperrors.Code(err)
}

func Signin(err error) {
	signinsTotal.WithLabelValues(result(err)).Inc()
}

func RefreshRotation(err error) {
	refreshRotationsTotal.WithLabelValues(result(err)).Inc()
	if apperrors.Is(err, apperrors.ErrTokenReuseDetected) {
		tokenReuseTotal.Inc()
	}
}

func CodeExchange(err error) {
	codeExchangesTotal.WithLabelValues(result(err)).Inc()
}

func SessionValidation(kind string, err error) {
	sessionValidationsTotal.WithLabelValues(kind, result(err)).Inc()
}

func OTPCheck(kind string, ok bool) {
	outcome := "rejected"
	if ok {
		outcome = "accepted"
	}
	otpChecksTotal.WithLabelValues(kind, outcome).Inc()
}

func CleanupDeleted(task string, n int64) {
	if n > 0 {
		cleanupDeletedTotal.WithLabelValues(task).Add(float64(n))
	}
}

// Instrument records request counts and latency labelled by the chi route pattern,
// which keeps tokens and ids out of the label values.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
