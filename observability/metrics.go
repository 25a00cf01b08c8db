package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scribe_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_post_mutations_total",
		Help: "Successful post mutations by operation.",
	}, []string{"op"})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_websocket_clients",
		Help: "Currently connected event stream clients.",
	})
)

var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "scribe_redis_errors_total",
	Help: "Redis command failures by command.",
}, []string{"command"})
