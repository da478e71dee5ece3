package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travel_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "travel_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	FeedComposeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travel_feed_compose_duration_seconds",
			Help:    "Time spent composing a feed page",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"sort", "filtered"},
	)

	AuthDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_auth_decisions_total",
			Help: "Authentication outcomes by provenance or failure reason",
		},
		[]string{"result"},
	)

	FollowingCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_following_cache_lookups_total",
			Help: "Following-set cache lookups by outcome",
		},
		[]string{"outcome"}, // "hit", "miss", "error"
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_upstream_requests_total",
			Help: "Outbound country API calls by target and outcome",
		},
		[]string{"target", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "travel_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

func RecordFeed(sort string, filtered bool, d time.Duration) {
	FeedComposeDuration.WithLabelValues(sort, strconv.FormatBool(filtered)).Observe(d.Seconds())
}

func RecordAuth(result string) {
	AuthDecisions.WithLabelValues(result).Inc()
}

func RecordCacheLookup(outcome string) {
	FollowingCacheLookups.WithLabelValues(outcome).Inc()
}

func RecordUpstream(target string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequests.WithLabelValues(target, outcome).Inc()
}

func SetBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Middleware records latency per matched route template, so path params
// do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		HTTPRequestsInFlight.Inc()
		start := time.Now()
		c.Next()
		HTTPRequestsInFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for /metrics.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
