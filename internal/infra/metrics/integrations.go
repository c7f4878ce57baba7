package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		sapDispatchTotal,
		notificationsTotal,
		circuitBreakerState,
		cacheRequestsTotal,
	)
}

var (
	// kind: billing|business_partner; status: queued|sent|failed|dropped
	sapDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sap_dispatch_total",
			Help:      "ERP pushes by record kind and status.",
		},
		[]string{"kind", "status"},
	)

	// channel: email|slack|telegram
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outgoing notifications by channel and status.",
		},
		[]string{"channel", "status"},
	)

	// 0 closed, 1 half-open, 2 open
	circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current state of outbound circuit breakers.",
		},
		[]string{"name"},
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Tracks cache hits and misses for various caches.",
		},
		[]string{"cache", "result"},
	)
)

func IncSapDispatch(kind, status string) {
	sapDispatchTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func IncNotification(channel, status string) {
	notificationsTotal.WithLabelValues(norm(channel), norm(status)).Inc()
}

func SetCircuitBreakerState(name string, state int) {
	circuitBreakerState.WithLabelValues(norm(name)).Set(float64(state))
}

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}
