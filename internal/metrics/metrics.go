package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Flutterwave, Termii, Maps
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of requests to third-party gateways",
		},
		[]string{"gateway", "endpoint", "status"},
	)
	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gateway_request_duration_seconds",
			Help: "Duration of third-party gateway requests in seconds",
		},
		[]string{"gateway", "endpoint"},
	)

	SubscriptionsActivated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Subscriptions activated after a verified payment",
		},
		[]string{"plan"},
	)

	OutboxMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_messages_total",
			Help: "Outbox messages processed, by kind and result",
		},
		[]string{"kind", "result"},
	)

	MapsCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maps_cache_lookups_total",
			Help: "Map lookup cache hits and misses",
		},
		[]string{"result"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsInFlight)

	prometheus.MustRegister(GatewayRequestsTotal)
	prometheus.MustRegister(GatewayRequestDuration)

	prometheus.MustRegister(SubscriptionsActivated)
	prometheus.MustRegister(OutboxMessages)
	prometheus.MustRegister(MapsCacheLookups)

	// The default registry already carries the Go and process collectors;
	// the build info collector is the only one missing.
	prometheus.MustRegister(collectors.NewBuildInfoCollector())
}
