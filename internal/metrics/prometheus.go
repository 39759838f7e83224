package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_http_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docportal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	AuthCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_auth_cache_hits_total",
			Help: "Identity lookups served from a fresh cache entry",
		},
		[]string{"endpoint"},
	)

	AuthCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_auth_cache_misses_total",
			Help: "Identity lookups that had to go through the throttler",
		},
		[]string{"endpoint"},
	)

	AuthCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_auth_calls_total",
			Help: "Network calls made to the auth API",
		},
		[]string{"endpoint", "status"},
	)

	AuthFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_auth_rate_limit_fallbacks_total",
			Help: "Rate-limited lookups answered from stale cache or with an empty result",
		},
		[]string{"endpoint", "result"},
	)

	FeedbackAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_feedback_insert_attempts_total",
			Help: "Feedback insert attempts by outcome",
		},
		[]string{"outcome"},
	)

	LoginBlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docportal_login_blocked_total",
			Help: "Sign-in attempts refused because the email/ip pair is blocked",
		},
	)
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(HTTPRequests)
		prometheus.MustRegister(HTTPDuration)
		prometheus.MustRegister(AuthCacheHits)
		prometheus.MustRegister(AuthCacheMisses)
		prometheus.MustRegister(AuthCalls)
		prometheus.MustRegister(AuthFallbacks)
		prometheus.MustRegister(FeedbackAttempts)
		prometheus.MustRegister(LoginBlocked)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
