// Package metrics holds the Prometheus collectors for authentication
// outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusExpired = "expired"
	StatusInvalid = "invalid"
	StatusReuse   = "reuse"
)

// Metrics groups the service collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	LoginAttemptsTotal        *prometheus.CounterVec
	RegistrationAttemptsTotal *prometheus.CounterVec
	TokenRefreshTotal         *prometheus.CounterVec
	ReuseDetectedTotal        prometheus.Counter
	SessionsRevokedTotal      *prometheus.CounterVec
	ExpiredTokensSweptTotal   prometheus.Counter
	RateLimitExceededTotal    *prometheus.CounterVec
	HTTPRequestDuration       *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LoginAttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blogauth_login_attempts_total",
			Help: "The total number of login attempts",
		}, []string{"status"}),
		RegistrationAttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blogauth_registration_attempts_total",
			Help: "The total number of registration attempts",
		}, []string{"status"}),
		TokenRefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blogauth_token_refresh_total",
			Help: "The total number of refresh token rotations by outcome",
		}, []string{"status"}),
		ReuseDetectedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "blogauth_token_reuse_detected_total",
			Help: "The total number of refresh token reuse detections",
		}),
		SessionsRevokedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blogauth_sessions_revoked_total",
			Help: "The total number of refresh token rows deleted by revocation",
		}, []string{"reason"}),
		ExpiredTokensSweptTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "blogauth_expired_tokens_swept_total",
			Help: "The total number of expired refresh tokens removed by the sweeper",
		}),
		RateLimitExceededTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blogauth_rate_limit_exceeded_total",
			Help: "The total number of rejected requests by route",
		}, []string{"route"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blogauth_http_request_duration_seconds",
			Help:    "The HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
